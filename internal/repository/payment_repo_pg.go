package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplyResult is the outcome of ApplyCaptured. Applied is false when another
// caller already completed the payment; the returned state is then the
// already-committed one.
type ApplyResult struct {
	Payment      *domain.Payment
	Booking      *domain.Booking
	Applied      bool
	ReviewMarked bool
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Payment, error)
	MarkFailed(ctx context.Context, providerOrderID, reason string) (*domain.Payment, error)
	ApplyCaptured(ctx context.Context, providerOrderID, providerTxnID string) (*ApplyResult, error)
	ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Payment, error)
}

type PGPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

const paymentColumns = `id, booking_id, payer_id, amount_cents, currency, provider, provider_order_id, provider_txn_id, status, failure_reason, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.BookingID, &p.PayerID, &p.AmountCents, &p.Currency, &p.Provider, &p.ProviderOrderID, &p.ProviderTxnID, &p.Status, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	payment.Status = domain.PaymentStatusPending
	return r.db.QueryRow(ctx, `INSERT INTO payments (booking_id, payer_id, amount_cents, currency, provider, provider_order_id, provider_txn_id, status, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, '', $7, '')
		RETURNING id, created_at, updated_at`,
		payment.BookingID, payment.PayerID, payment.AmountCents, payment.Currency, payment.Provider, payment.ProviderOrderID, payment.Status).
		Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

func (r *PGPaymentRepository) GetByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE provider_order_id=$1`, providerOrderID)
	return scanPayment(row)
}

// MarkFailed moves a pending payment to FAILED. Completed payments are left
// untouched and returned as-is.
func (r *PGPaymentRepository) MarkFailed(ctx context.Context, providerOrderID, reason string) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `UPDATE payments SET status=$1, failure_reason=$2, updated_at=now()
		WHERE provider_order_id=$3 AND status=$4
		RETURNING `+paymentColumns,
		domain.PaymentStatusFailed, reason, providerOrderID, domain.PaymentStatusPending)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return r.GetByProviderOrderID(ctx, providerOrderID)
		}
		return nil, err
	}
	return p, nil
}

// ApplyCaptured applies a provider-confirmed payment as one atomic write
// group: payment PENDING->COMPLETED, booking PENDING->CONFIRMED, unit marked
// booked, and for Flat units review status NONE->UNDER_REVIEW. Any later
// confirmation for the same order id observes the COMPLETED row and returns
// without writing. A capture against a booking that is no longer PENDING
// never applies: at most one payment per booking completes, even when several
// pending rows exist for it.
func (r *PGPaymentRepository) ApplyCaptured(ctx context.Context, providerOrderID, providerTxnID string) (*ApplyResult, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	payment, err := scanPayment(tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE provider_order_id=$1 FOR UPDATE`, providerOrderID))
	if err != nil {
		return nil, err
	}

	booking, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1 FOR UPDATE`, payment.BookingID))
	if err != nil {
		return nil, err
	}

	if payment.Status == domain.PaymentStatusCompleted {
		return &ApplyResult{Payment: payment, Booking: booking, Applied: false}, nil
	}
	if payment.Status != domain.PaymentStatusPending {
		return nil, ErrNotPending
	}

	if booking.Status == domain.BookingStatusCancelled {
		// The booking was cancelled while the provider confirmation was in
		// flight. Record the anomaly on the payment row and leave the
		// booking alone.
		if err := r.failInTx(ctx, tx, payment.ID, providerTxnID, "captured after booking cancellation"); err != nil {
			return nil, err
		}
		return nil, ErrBookingCancelled
	}
	if booking.Status != domain.BookingStatusPending {
		// This row is still pending but the booking was confirmed through a
		// different payment row. At most one payment per booking may
		// complete, so record the anomaly and leave booking and unit alone.
		if err := r.failInTx(ctx, tx, payment.ID, providerTxnID, "captured after booking was paid by another payment"); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyPaid
	}

	payment, err = scanPayment(tx.QueryRow(ctx, `UPDATE payments SET status=$1, provider_txn_id=$2, updated_at=now()
		WHERE id=$3 AND status=$4
		RETURNING `+paymentColumns,
		domain.PaymentStatusCompleted, providerTxnID, payment.ID, domain.PaymentStatusPending))
	if err != nil {
		return nil, err
	}

	booking, err = scanBooking(tx.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now()
		WHERE id=$2
		RETURNING `+bookingColumns,
		domain.BookingStatusConfirmed, booking.ID))
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE units SET booked=true, updated_at=now() WHERE kind=$1 AND id=$2`, booking.UnitKind, booking.UnitID); err != nil {
		return nil, err
	}

	reviewMarked := false
	if booking.UnitKind == domain.UnitKindFlat {
		cmd, err := tx.Exec(ctx, `UPDATE units SET review_status=$1, updated_at=now()
			WHERE kind=$2 AND id=$3 AND review_status=$4`,
			domain.ReviewStatusUnderReview, booking.UnitKind, booking.UnitID, domain.ReviewStatusNone)
		if err != nil {
			return nil, err
		}
		reviewMarked = cmd.RowsAffected() > 0
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &ApplyResult{Payment: payment, Booking: booking, Applied: true, ReviewMarked: reviewMarked}, nil
}

// failInTx records an anomalous capture on the payment row and commits just
// that write.
func (r *PGPaymentRepository) failInTx(ctx context.Context, tx pgx.Tx, paymentID int64, providerTxnID, reason string) error {
	_, err := tx.Exec(ctx, `UPDATE payments SET status=$1, provider_txn_id=$2, failure_reason=$3, updated_at=now() WHERE id=$4`,
		domain.PaymentStatusFailed, providerTxnID, reason, paymentID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ExpirePendingBefore fails payments stuck in PENDING past the deadline.
func (r *PGPaymentRepository) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Payment, error) {
	rows, err := r.db.Query(ctx, `UPDATE payments SET status=$1, failure_reason=$2, updated_at=now()
		WHERE status=$3 AND created_at <= $4
		RETURNING `+paymentColumns,
		domain.PaymentStatusFailed, "payment session expired", domain.PaymentStatusPending, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.BookingID, &p.PayerID, &p.AmountCents, &p.Currency, &p.Provider, &p.ProviderOrderID, &p.ProviderTxnID, &p.Status, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		expired = append(expired, p)
	}
	return expired, rows.Err()
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
