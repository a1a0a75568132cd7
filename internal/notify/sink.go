package notify

import (
	"context"

	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/Domenick1991/flatstay/internal/kafka"
	"github.com/Domenick1991/flatstay/internal/repository"
	"github.com/sirupsen/logrus"
)

// Sink persists notification events consumed from the fanout topic.
type Sink struct {
	notifications repository.NotificationRepository
	log           *logrus.Logger
}

func NewSink(notifications repository.NotificationRepository, log *logrus.Logger) *Sink {
	return &Sink{notifications: notifications, log: log}
}

func (s *Sink) Handle(ctx context.Context, event kafka.NotificationEvent) error {
	n := &domain.Notification{
		RecipientID: event.RecipientID,
		Type:        event.Type,
		Message:     event.Message,
		BookingID:   event.BookingID,
		UnitKind:    event.UnitKind,
		UnitID:      event.UnitID,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		// Notifications are best-effort end to end; drop the event rather
		// than wedging the consumer.
		s.log.WithError(err).WithField("event_id", event.EventID).Warn("notify: failed to persist notification")
		return nil
	}
	return nil
}
