package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrOverlap          = errors.New("overlapping booking exists")
	ErrBookingCancelled = errors.New("booking is cancelled")
	ErrAlreadyPaid      = errors.New("booking already paid")
	ErrNotPending       = errors.New("status transition not allowed")
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListActiveForUnit(ctx context.Context, kind domain.UnitKind, unitID int64) ([]domain.Booking, error)
	Cancel(ctx context.Context, id int64) (*domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, unit_kind, unit_id, renter_id, start_date, end_date, amount_cents, status, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.UnitKind, &b.UnitID, &b.RenterID, &b.StartDate, &b.EndDate, &b.AmountCents, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Create inserts a pending booking. The unit row is locked for the duration
// of the transaction so the overlap re-check and the insert are serialized
// against concurrent creations for the same unit.
func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var unitID int64
	err = tx.QueryRow(ctx, `SELECT id FROM units WHERE kind=$1 AND id=$2 FOR UPDATE`, booking.UnitKind, booking.UnitID).Scan(&unitID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	var conflicts int
	err = tx.QueryRow(ctx, `SELECT count(*) FROM bookings
		WHERE unit_kind=$1 AND unit_id=$2 AND status <> $3
		AND start_date < $5 AND end_date > $4`,
		booking.UnitKind, booking.UnitID, domain.BookingStatusCancelled, booking.StartDate, booking.EndDate).Scan(&conflicts)
	if err != nil {
		return err
	}
	if conflicts > 0 {
		return ErrOverlap
	}

	booking.Status = domain.BookingStatusPending
	if err := tx.QueryRow(ctx, `INSERT INTO bookings (unit_kind, unit_id, renter_id, start_date, end_date, amount_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		booking.UnitKind, booking.UnitID, booking.RenterID, booking.StartDate, booking.EndDate, booking.AmountCents, booking.Status).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	return scanBooking(row)
}

func (r *PGBookingRepository) ListActiveForUnit(ctx context.Context, kind domain.UnitKind, unitID int64) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE unit_kind=$1 AND unit_id=$2 AND status <> $3 ORDER BY start_date`,
		kind, unitID, domain.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.UnitKind, &b.UnitID, &b.RenterID, &b.StartDate, &b.EndDate, &b.AmountCents, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// Cancel moves a pending or confirmed booking to CANCELLED.
func (r *PGBookingRepository) Cancel(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now()
		WHERE id=$2 AND status IN ($3, $4)
		RETURNING `+bookingColumns,
		domain.BookingStatusCancelled, id, domain.BookingStatusPending, domain.BookingStatusConfirmed)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotPending
		}
		return nil, err
	}
	return b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
