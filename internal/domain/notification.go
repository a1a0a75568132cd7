package domain

import "time"

type NotificationType string

const (
	NotificationBookingRequested NotificationType = "booking_requested"
	NotificationBookingConfirmed NotificationType = "booking_confirmed"
	NotificationBookingCancelled NotificationType = "booking_cancelled"
	NotificationUnitUnderReview  NotificationType = "unit_under_review"
)

// Notification is write-once; only the recipient flips Read afterwards.
type Notification struct {
	ID          int64
	RecipientID int64
	Type        NotificationType
	Message     string
	BookingID   *int64
	UnitKind    UnitKind
	UnitID      *int64
	Read        bool
	CreatedAt   time.Time
}
