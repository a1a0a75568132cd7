package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UnitRepository interface {
	List(ctx context.Context) ([]domain.Unit, error)
	GetUnit(ctx context.Context, kind domain.UnitKind, id int64) (*domain.Unit, error)
	SetBooked(ctx context.Context, kind domain.UnitKind, id int64, booked bool) error
	// CASReviewStatus transitions review_status only when the current value
	// is the expected predecessor; it reports whether the write applied.
	CASReviewStatus(ctx context.Context, kind domain.UnitKind, id int64, from, to domain.ReviewStatus) (bool, error)
}

type PGUnitRepository struct {
	db *pgxpool.Pool
}

func NewUnitRepository(db *pgxpool.Pool) UnitRepository {
	return &PGUnitRepository{db: db}
}

const unitColumns = `id, kind, owner_id, title, city, rate_cents, booked, review_status, created_at, updated_at`

func (r *PGUnitRepository) List(ctx context.Context) ([]domain.Unit, error) {
	rows, err := r.db.Query(ctx, `SELECT `+unitColumns+` FROM units ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units := make([]domain.Unit, 0)
	for rows.Next() {
		var u domain.Unit
		if err := rows.Scan(&u.ID, &u.Kind, &u.OwnerID, &u.Title, &u.City, &u.RateCents, &u.Booked, &u.ReviewStatus, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (r *PGUnitRepository) GetUnit(ctx context.Context, kind domain.UnitKind, id int64) (*domain.Unit, error) {
	row := r.db.QueryRow(ctx, `SELECT `+unitColumns+` FROM units WHERE kind=$1 AND id=$2`, kind, id)
	var u domain.Unit
	if err := row.Scan(&u.ID, &u.Kind, &u.OwnerID, &u.Title, &u.City, &u.RateCents, &u.Booked, &u.ReviewStatus, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PGUnitRepository) SetBooked(ctx context.Context, kind domain.UnitKind, id int64, booked bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE units SET booked=$1, updated_at=now() WHERE kind=$2 AND id=$3`, booked, kind, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGUnitRepository) CASReviewStatus(ctx context.Context, kind domain.UnitKind, id int64, from, to domain.ReviewStatus) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE units SET review_status=$1, updated_at=now()
		WHERE kind=$2 AND id=$3 AND review_status=$4`, to, kind, id, from)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

var _ UnitRepository = (*PGUnitRepository)(nil)
