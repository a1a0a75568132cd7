// Package notify implements best-effort notification fanout. Publish
// failures are logged and swallowed; they never surface to the caller.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/Domenick1991/flatstay/internal/kafka"
	"github.com/Domenick1991/flatstay/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const publishRetries = 3

type Producer interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error
}

type Fanout struct {
	producer Producer
	topic    string
	users    repository.UserRepository
	log      *logrus.Logger
}

func NewFanout(producer Producer, topic string, users repository.UserRepository, log *logrus.Logger) *Fanout {
	return &Fanout{producer: producer, topic: topic, users: users, log: log}
}

// BookingRequested tells the unit owner a renter asked for the unit.
func (f *Fanout) BookingRequested(ctx context.Context, b *domain.Booking, u *domain.Unit) {
	msg := fmt.Sprintf("New booking request for %q from %s to %s",
		u.Title, b.StartDate.Format("2006-01-02"), b.EndDate.Format("2006-01-02"))
	f.send(ctx, domain.NotificationBookingRequested, u.OwnerID, msg, b, u)
}

// BookingCancelled tells the unit owner the renter cancelled.
func (f *Fanout) BookingCancelled(ctx context.Context, b *domain.Booking, u *domain.Unit) {
	msg := fmt.Sprintf("Booking for %q (%s to %s) was cancelled",
		u.Title, b.StartDate.Format("2006-01-02"), b.EndDate.Format("2006-01-02"))
	f.send(ctx, domain.NotificationBookingCancelled, u.OwnerID, msg, b, u)
}

// BookingConfirmed notifies the unit owner of a paid booking. When the
// confirmation moved a flat into the under-review handover state, every
// administrator is notified as well.
func (f *Fanout) BookingConfirmed(ctx context.Context, b *domain.Booking, u *domain.Unit, reviewMarked bool) {
	msg := fmt.Sprintf("Booking for %q (%s to %s) is confirmed and paid",
		u.Title, b.StartDate.Format("2006-01-02"), b.EndDate.Format("2006-01-02"))
	f.send(ctx, domain.NotificationBookingConfirmed, u.OwnerID, msg, b, u)

	if !reviewMarked {
		return
	}

	admins, err := f.users.ListAdmins(ctx)
	if err != nil {
		f.log.WithError(err).Warn("notify: failed to resolve admin recipients")
		return
	}
	adminMsg := fmt.Sprintf("Flat %q entered handover review after a confirmed booking", u.Title)
	for _, admin := range admins {
		f.send(ctx, domain.NotificationUnitUnderReview, admin.ID, adminMsg, b, u)
	}
}

func (f *Fanout) send(ctx context.Context, typ domain.NotificationType, recipientID int64, msg string, b *domain.Booking, u *domain.Unit) {
	if f.producer == nil || f.topic == "" {
		return
	}

	event := kafka.NotificationEvent{
		EventID:     uuid.NewString(),
		Type:        typ,
		RecipientID: recipientID,
		Message:     msg,
		OccurredAt:  time.Now().UTC(),
	}
	if b != nil {
		id := b.ID
		event.BookingID = &id
	}
	if u != nil {
		id := u.ID
		event.UnitKind = u.Kind
		event.UnitID = &id
	}

	if err := f.producer.PublishWithRetry(ctx, f.topic, event.EventID, event, publishRetries); err != nil {
		f.log.WithError(err).WithFields(logrus.Fields{
			"type":      typ,
			"recipient": recipientID,
		}).Warn("notify: failed to publish notification event")
	}
}
