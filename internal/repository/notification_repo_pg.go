package repository

import (
	"context"

	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
}

type PGNotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) NotificationRepository {
	return &PGNotificationRepository{db: db}
}

func (r *PGNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return r.db.QueryRow(ctx, `INSERT INTO notifications (recipient_id, type, message, booking_id, unit_kind, unit_id, read)
		VALUES ($1, $2, $3, $4, $5, $6, false)
		RETURNING id, created_at`,
		n.RecipientID, n.Type, n.Message, n.BookingID, n.UnitKind, n.UnitID).
		Scan(&n.ID, &n.CreatedAt)
}

var _ NotificationRepository = (*PGNotificationRepository)(nil)
