package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// Booking reserves a unit over the half-open date range [StartDate, EndDate).
// AmountCents is the expected charge fixed at creation time.
type Booking struct {
	ID          int64
	UnitKind    UnitKind
	UnitID      int64
	RenterID    int64
	StartDate   time.Time
	EndDate     time.Time
	AmountCents int64
	Status      BookingStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Overlaps reports whether two half-open ranges [s1,e1) and [s2,e2) intersect.
// Back-to-back ranges (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// Nights returns the number of nights covered by [start, end).
func Nights(start, end time.Time) int64 {
	return int64(end.Sub(start).Hours() / 24)
}
