package booking

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/flatstay/internal/apperr"
	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/Domenick1991/flatstay/internal/repository"
	"github.com/sirupsen/logrus"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID, renterID int64) (*domain.Booking, error)
	GetBooking(ctx context.Context, bookingID, requesterID int64) (*domain.Booking, error)
	IsAvailable(ctx context.Context, kind domain.UnitKind, unitID int64, start, end time.Time, excludeBookingID int64) (bool, error)
}

type Cache interface {
	AcquireUnitLock(ctx context.Context, kind domain.UnitKind, unitID int64, ttl time.Duration) (bool, error)
	ReleaseUnitLock(ctx context.Context, kind domain.UnitKind, unitID int64) error
}

type Fanout interface {
	BookingRequested(ctx context.Context, b *domain.Booking, u *domain.Unit)
	BookingCancelled(ctx context.Context, b *domain.Booking, u *domain.Unit)
}

type Service struct {
	bookings repository.BookingRepository
	units    repository.UnitRepository
	cache    Cache
	fanout   Fanout
	holdTTL  time.Duration
	log      *logrus.Logger
}

type CreateBookingInput struct {
	UnitKind  domain.UnitKind
	UnitID    int64
	RenterID  int64
	StartDate time.Time
	EndDate   time.Time
}

func NewService(
	bookings repository.BookingRepository,
	units repository.UnitRepository,
	cache Cache,
	fanout Fanout,
	holdTTL time.Duration,
	log *logrus.Logger,
) *Service {
	return &Service{
		bookings: bookings,
		units:    units,
		cache:    cache,
		fanout:   fanout,
		holdTTL:  holdTTL,
		log:      log,
	}
}

func (s *Service) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if input.UnitKind != domain.UnitKindFlat && input.UnitKind != domain.UnitKindPG {
		return nil, apperr.Validation("unknown unit kind %q", input.UnitKind)
	}
	if !input.StartDate.Before(input.EndDate) {
		return nil, apperr.Validation("start date must be before end date")
	}

	unit, err := s.units.GetUnit(ctx, input.UnitKind, input.UnitID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("unit %s/%d not found", input.UnitKind, input.UnitID)
		}
		return nil, apperr.Internal("load unit", err)
	}
	if unit.Booked {
		return nil, apperr.Conflict("unit is not available")
	}

	// The lock serializes check-then-insert per unit; losing it means a
	// concurrent booking attempt is in flight for the same unit.
	if s.cache != nil {
		ok, err := s.cache.AcquireUnitLock(ctx, input.UnitKind, input.UnitID, s.holdTTL)
		if err != nil {
			return nil, apperr.Internal("acquire unit lock", err)
		}
		if !ok {
			return nil, apperr.Conflict("another booking for this unit is in progress")
		}
		defer func() {
			_ = s.cache.ReleaseUnitLock(ctx, input.UnitKind, input.UnitID)
		}()
	}

	available, err := s.IsAvailable(ctx, input.UnitKind, input.UnitID, input.StartDate, input.EndDate, 0)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, apperr.Conflict("unit is already booked for the requested dates")
	}

	booking := &domain.Booking{
		UnitKind:    input.UnitKind,
		UnitID:      input.UnitID,
		RenterID:    input.RenterID,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		AmountCents: unit.RateCents * domain.Nights(input.StartDate, input.EndDate),
	}

	// The repository re-validates the overlap predicate inside its
	// transaction, so correctness does not depend on the advisory read
	// above or on the redis lock.
	if err := s.bookings.Create(ctx, booking); err != nil {
		switch {
		case errors.Is(err, repository.ErrOverlap):
			return nil, apperr.Conflict("unit is already booked for the requested dates")
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.NotFound("unit %s/%d not found", input.UnitKind, input.UnitID)
		default:
			return nil, apperr.Internal("create booking", err)
		}
	}

	if s.fanout != nil {
		s.fanout.BookingRequested(ctx, booking, unit)
	}
	return booking, nil
}

// IsAvailable tests the requested range against every non-cancelled booking
// for the unit. This read is advisory; the commit-time check in the
// repository is authoritative.
func (s *Service) IsAvailable(ctx context.Context, kind domain.UnitKind, unitID int64, start, end time.Time, excludeBookingID int64) (bool, error) {
	existing, err := s.bookings.ListActiveForUnit(ctx, kind, unitID)
	if err != nil {
		return false, apperr.Internal("list bookings for unit", err)
	}
	for _, b := range existing {
		if b.ID == excludeBookingID {
			continue
		}
		if domain.Overlaps(b.StartDate, b.EndDate, start, end) {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) CancelBooking(ctx context.Context, bookingID, renterID int64) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("booking %d not found", bookingID)
		}
		return nil, apperr.Internal("load booking", err)
	}
	if current.RenterID != renterID {
		return nil, apperr.Forbidden("booking does not belong to the caller")
	}
	if current.Status == domain.BookingStatusCancelled {
		return current, nil
	}
	if current.Status == domain.BookingStatusCompleted {
		return nil, apperr.Conflict("completed bookings cannot be cancelled")
	}

	updated, err := s.bookings.Cancel(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, apperr.Conflict("booking can no longer be cancelled")
		}
		return nil, apperr.Internal("cancel booking", err)
	}

	unit, err := s.units.GetUnit(ctx, updated.UnitKind, updated.UnitID)
	if err != nil {
		s.log.WithError(err).WithField("booking_id", bookingID).Warn("booking: cancelled but unit lookup failed")
		return updated, nil
	}

	if current.Status == domain.BookingStatusConfirmed {
		if err := s.units.SetBooked(ctx, updated.UnitKind, updated.UnitID, false); err != nil {
			s.log.WithError(err).WithField("booking_id", bookingID).Warn("booking: failed to clear booked flag")
		}
	}

	if s.fanout != nil {
		s.fanout.BookingCancelled(ctx, updated, unit)
	}
	return updated, nil
}

func (s *Service) GetBooking(ctx context.Context, bookingID, requesterID int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("booking %d not found", bookingID)
		}
		return nil, apperr.Internal("load booking", err)
	}
	if b.RenterID != requesterID {
		return nil, apperr.Forbidden("booking does not belong to the caller")
	}
	return b, nil
}

var _ BookingUseCase = (*Service)(nil)
