package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type PaymentProvider string

const (
	ProviderAlphaPay PaymentProvider = "alphapay"
	ProviderBetaPay  PaymentProvider = "betapay"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment is one attempt to pay for a booking. Retries create new rows in
// PENDING/FAILED state; at most one row per booking ever reaches COMPLETED.
type Payment struct {
	ID              int64
	BookingID       int64
	PayerID         int64
	AmountCents     int64
	Currency        string
	Provider        PaymentProvider
	ProviderOrderID string
	ProviderTxnID   string
	Status          PaymentStatus
	FailureReason   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewOrderRef builds the order reference handed to the payment provider.
// The booking id is embedded so reconciliation can recover it without a
// side index.
func NewOrderRef(bookingID int64, now time.Time) string {
	return fmt.Sprintf("order_%d_%d", bookingID, now.UnixMilli())
}

// BookingIDFromOrderRef extracts the embedded booking id from an order
// reference of the form order_<bookingId>_<timestamp>.
func BookingIDFromOrderRef(ref string) (int64, error) {
	parts := strings.Split(ref, "_")
	if len(parts) != 3 || parts[0] != "order" {
		return 0, fmt.Errorf("malformed order reference %q", ref)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("malformed order reference %q", ref)
	}
	return id, nil
}
