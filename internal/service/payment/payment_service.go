// Package payment holds the order orchestrator and the reconciliation
// engine. Three triggers (synchronous verify, provider webhook, client
// poll) converge on one idempotent apply procedure.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/flatstay/internal/apperr"
	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/Domenick1991/flatstay/internal/provider"
	"github.com/Domenick1991/flatstay/internal/repository"
	"github.com/sirupsen/logrus"
)

type PaymentUseCase interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderSession, error)
	VerifyPayment(ctx context.Context, input VerifyInput) (*Receipt, error)
	HandleWebhook(ctx context.Context, providerName string, body []byte, signature string) error
	OrderStatus(ctx context.Context, providerOrderID string) (*Receipt, error)
}

type Fanout interface {
	BookingConfirmed(ctx context.Context, b *domain.Booking, u *domain.Unit, reviewMarked bool)
}

type Service struct {
	payments        repository.PaymentRepository
	bookings        repository.BookingRepository
	units           repository.UnitRepository
	users           repository.UserRepository
	gateways        map[domain.PaymentProvider]provider.Gateway
	defaultProvider domain.PaymentProvider
	currency        string
	fanout          Fanout
	log             *logrus.Logger
	now             func() time.Time
}

type CreateOrderInput struct {
	BookingID   int64
	PayerID     int64
	AmountCents int64
	Provider    string
}

// OrderSession is what the client needs to open the provider checkout.
type OrderSession struct {
	Provider        domain.PaymentProvider
	ProviderOrderID string
	SessionToken    string
	AmountCents     int64
	Currency        string
}

type VerifyInput struct {
	Provider  string
	OrderID   string
	PaymentID string
	Signature string
}

// Receipt is the Booking/Payment pair returned by every reconciliation
// trigger.
type Receipt struct {
	Booking *domain.Booking
	Payment *domain.Payment
}

func NewService(
	payments repository.PaymentRepository,
	bookings repository.BookingRepository,
	units repository.UnitRepository,
	users repository.UserRepository,
	gateways []provider.Gateway,
	defaultProvider domain.PaymentProvider,
	currency string,
	fanout Fanout,
	log *logrus.Logger,
) *Service {
	byName := make(map[domain.PaymentProvider]provider.Gateway, len(gateways))
	for _, gw := range gateways {
		byName[gw.Name()] = gw
	}
	return &Service{
		payments:        payments,
		bookings:        bookings,
		units:           units,
		users:           users,
		gateways:        byName,
		defaultProvider: defaultProvider,
		currency:        currency,
		fanout:          fanout,
		log:             log,
		now:             time.Now,
	}
}

func (s *Service) gatewayFor(name string) (provider.Gateway, error) {
	p := s.defaultProvider
	if name != "" {
		p = domain.PaymentProvider(name)
	}
	gw, ok := s.gateways[p]
	if !ok {
		return nil, apperr.Validation("unknown payment provider %q", p)
	}
	return gw, nil
}

// CreateOrder validates the booking and payer, opens a provider order and
// persists a pending payment row. No row is written when the provider call
// fails.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderSession, error) {
	booking, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("booking %d not found", input.BookingID)
		}
		return nil, apperr.Internal("load booking", err)
	}
	if booking.RenterID != input.PayerID {
		return nil, apperr.Forbidden("booking does not belong to the payer")
	}
	if booking.Status != domain.BookingStatusPending {
		return nil, apperr.Conflict("booking is not pending payment")
	}

	payer, err := s.users.GetByID(ctx, input.PayerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Client("payer account not found")
		}
		return nil, apperr.Internal("load payer", err)
	}
	if payer.Verification == domain.VerificationPending || payer.Verification == domain.VerificationUnderReview {
		return nil, apperr.Forbidden("payer verification is still in progress")
	}

	if input.AmountCents <= 0 {
		return nil, apperr.Validation("amount must be a positive integer")
	}
	if input.AmountCents != booking.AmountCents {
		return nil, apperr.Validation("amount does not match the booking charge")
	}

	gw, err := s.gatewayFor(input.Provider)
	if err != nil {
		return nil, err
	}

	orderRef := domain.NewOrderRef(booking.ID, s.now())
	order, err := gw.CreateOrder(ctx, provider.OrderRequest{
		OrderRef:    orderRef,
		AmountCents: input.AmountCents,
		Currency:    s.currency,
		PayerEmail:  payer.Email,
		PayerPhone:  payer.Phone,
	})
	if err != nil {
		return nil, err
	}

	paymentRow := &domain.Payment{
		BookingID:       booking.ID,
		PayerID:         input.PayerID,
		AmountCents:     input.AmountCents,
		Currency:        s.currency,
		Provider:        gw.Name(),
		ProviderOrderID: order.ProviderOrderID,
	}
	if err := s.payments.Create(ctx, paymentRow); err != nil {
		return nil, apperr.Internal("persist payment", err)
	}

	return &OrderSession{
		Provider:        gw.Name(),
		ProviderOrderID: order.ProviderOrderID,
		SessionToken:    order.SessionToken,
		AmountCents:     input.AmountCents,
		Currency:        s.currency,
	}, nil
}

// VerifyPayment is the synchronous post-checkout trigger: the client hands
// back (orderId, paymentId, signature) and the signature is checked before
// anything is resolved or mutated.
func (s *Service) VerifyPayment(ctx context.Context, input VerifyInput) (*Receipt, error) {
	gw, err := s.gatewayFor(input.Provider)
	if err != nil {
		return nil, err
	}
	if !gw.VerifySignature(input.OrderID, input.PaymentID, input.Signature) {
		return nil, apperr.Client("invalid payment signature")
	}

	receipt, _, err := s.applyCaptured(ctx, input.OrderID, input.PaymentID)
	return receipt, err
}

// HandleWebhook is the asynchronous trigger. The HMAC over the raw body is
// checked with the webhook secret before the envelope is even parsed.
func (s *Service) HandleWebhook(ctx context.Context, providerName string, body []byte, signature string) error {
	gw, ok := s.gateways[domain.PaymentProvider(providerName)]
	if !ok {
		return apperr.NotFound("unknown payment provider %q", providerName)
	}
	if !gw.VerifyWebhook(body, signature) {
		return apperr.Client("invalid webhook signature")
	}

	event, err := gw.ParseWebhook(body)
	if err != nil {
		return err
	}

	switch event.Event {
	case provider.EventPaymentCaptured:
		_, _, err := s.applyCaptured(ctx, event.ProviderOrderID, event.ProviderTxnID)
		return err
	case provider.EventPaymentFailed:
		if _, err := s.payments.MarkFailed(ctx, event.ProviderOrderID, "provider reported failure"); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return apperr.Internal("mark payment failed", err)
		}
		return nil
	default:
		// Unrecognised events are acknowledged and dropped so the provider
		// stops retrying them.
		s.log.WithField("event", event.Event).Debug("payment: ignoring webhook event")
		return nil
	}
}

// OrderStatus is the client poll trigger: it re-fetches the order from the
// provider and only reconciles when the fetched state is final.
func (s *Service) OrderStatus(ctx context.Context, providerOrderID string) (*Receipt, error) {
	paymentRow, err := s.payments.GetByProviderOrderID(ctx, providerOrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("order %q not found", providerOrderID)
		}
		return nil, apperr.Internal("load payment", err)
	}
	if paymentRow.Status == domain.PaymentStatusCompleted {
		return s.receiptFor(ctx, paymentRow)
	}

	gw, ok := s.gateways[paymentRow.Provider]
	if !ok {
		return nil, apperr.Internal("gateway not configured", errors.New(string(paymentRow.Provider)))
	}

	info, err := gw.FetchStatus(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}

	switch info.Status {
	case provider.StatusSucceeded:
		receipt, _, err := s.applyCaptured(ctx, providerOrderID, info.ProviderTxnID)
		return receipt, err
	case provider.StatusFailed:
		failed, err := s.payments.MarkFailed(ctx, providerOrderID, "provider reported failure")
		if err != nil {
			return nil, apperr.Internal("mark payment failed", err)
		}
		return s.receiptFor(ctx, failed)
	default:
		return s.receiptFor(ctx, paymentRow)
	}
}

// applyCaptured is the single idempotent procedure behind all three
// triggers. The returned bool reports whether this call performed the state
// transition; repeated confirmations return the committed state without a
// second fanout.
func (s *Service) applyCaptured(ctx context.Context, providerOrderID, providerTxnID string) (*Receipt, bool, error) {
	embeddedID, err := domain.BookingIDFromOrderRef(providerOrderID)
	if err != nil {
		return nil, false, apperr.Client("malformed order reference")
	}

	paymentRow, err := s.payments.GetByProviderOrderID(ctx, providerOrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, apperr.NotFound("order %q not found", providerOrderID)
		}
		return nil, false, apperr.Internal("load payment", err)
	}
	if paymentRow.BookingID != embeddedID {
		return nil, false, apperr.Client("order reference does not match payment record")
	}

	if paymentRow.Status == domain.PaymentStatusCompleted {
		receipt, err := s.receiptFor(ctx, paymentRow)
		return receipt, false, err
	}

	result, err := s.payments.ApplyCaptured(ctx, providerOrderID, providerTxnID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingCancelled):
			s.log.WithFields(logrus.Fields{
				"order_ref":  providerOrderID,
				"booking_id": paymentRow.BookingID,
			}).Warn("payment: provider confirmed a payment for a cancelled booking")
			return nil, false, apperr.Conflict("booking was cancelled before payment confirmation")
		case errors.Is(err, repository.ErrAlreadyPaid):
			s.log.WithFields(logrus.Fields{
				"order_ref":  providerOrderID,
				"booking_id": paymentRow.BookingID,
			}).Warn("payment: provider confirmed a payment for a booking already paid through another order")
			return nil, false, apperr.Conflict("booking is already paid")
		case errors.Is(err, repository.ErrNotPending):
			return nil, false, apperr.Conflict("payment is no longer pending")
		case errors.Is(err, repository.ErrNotFound):
			return nil, false, apperr.NotFound("order %q not found", providerOrderID)
		default:
			return nil, false, apperr.Internal("apply captured payment", err)
		}
	}

	if result.Applied && s.fanout != nil {
		unit, err := s.units.GetUnit(ctx, result.Booking.UnitKind, result.Booking.UnitID)
		if err != nil {
			s.log.WithError(err).WithField("booking_id", result.Booking.ID).Warn("payment: confirmed but unit lookup failed, skipping notifications")
		} else {
			s.fanout.BookingConfirmed(ctx, result.Booking, unit, result.ReviewMarked)
		}
	}

	return &Receipt{Booking: result.Booking, Payment: result.Payment}, result.Applied, nil
}

func (s *Service) receiptFor(ctx context.Context, paymentRow *domain.Payment) (*Receipt, error) {
	booking, err := s.bookings.GetByID(ctx, paymentRow.BookingID)
	if err != nil {
		return nil, apperr.Internal("load booking", err)
	}
	return &Receipt{Booking: booking, Payment: paymentRow}, nil
}

var _ PaymentUseCase = (*Service)(nil)
