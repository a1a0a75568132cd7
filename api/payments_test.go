package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/flatstay/internal/apperr"
	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/Domenick1991/flatstay/internal/service/payment"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPaymentUseCase struct {
	mock.Mock
}

func (m *MockPaymentUseCase) CreateOrder(ctx context.Context, input payment.CreateOrderInput) (*payment.OrderSession, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.OrderSession), args.Error(1)
}

func (m *MockPaymentUseCase) VerifyPayment(ctx context.Context, input payment.VerifyInput) (*payment.Receipt, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Receipt), args.Error(1)
}

func (m *MockPaymentUseCase) HandleWebhook(ctx context.Context, providerName string, body []byte, signature string) error {
	args := m.Called(ctx, providerName, body, signature)
	return args.Error(0)
}

func (m *MockPaymentUseCase) OrderStatus(ctx context.Context, providerOrderID string) (*payment.Receipt, error) {
	args := m.Called(ctx, providerOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Receipt), args.Error(1)
}

func paymentRouter(service payment.PaymentUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewPaymentHandler(service).Register(router.Group("/payments"))
	return router
}

func sampleReceipt() *payment.Receipt {
	b := sampleBooking()
	b.Status = domain.BookingStatusConfirmed
	return &payment.Receipt{
		Booking: b,
		Payment: &domain.Payment{
			ID:              1,
			BookingID:       b.ID,
			AmountCents:     b.AmountCents,
			Currency:        "INR",
			Provider:        domain.ProviderBetaPay,
			ProviderOrderID: "order_3_1720000000000",
			ProviderTxnID:   "pay_1",
			Status:          domain.PaymentStatusCompleted,
		},
	}
}

func TestCreateOrderHandler(t *testing.T) {
	service := &MockPaymentUseCase{}
	router := paymentRouter(service)

	service.On("CreateOrder", mock.Anything, payment.CreateOrderInput{
		BookingID:   3,
		PayerID:     42,
		AmountCents: 2250000,
		Provider:    "betapay",
	}).Return(&payment.OrderSession{
		Provider:        domain.ProviderBetaPay,
		ProviderOrderID: "order_3_1720000000000",
		SessionToken:    "sess_abc",
		AmountCents:     2250000,
		Currency:        "INR",
	}, nil).Once()

	body := `{"booking_id":3,"amount_cents":2250000,"provider":"betapay"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/create-order", bytes.NewBufferString(body))
	req.Header.Set(userIDHeader, "42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp orderSessionResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "order_3_1720000000000", resp.ProviderOrderID)
	assert.Equal(t, "sess_abc", resp.SessionToken)
	service.AssertExpectations(t)
}

func TestCreateOrderHandler_TransientProviderFailure(t *testing.T) {
	service := &MockPaymentUseCase{}
	router := paymentRouter(service)

	service.On("CreateOrder", mock.Anything, mock.Anything).
		Return(nil, apperr.Provider("betapay returned status 503", true, nil)).Once()

	body := `{"booking_id":3,"amount_cents":2250000}`
	req := httptest.NewRequest(http.MethodPost, "/payments/create-order", bytes.NewBufferString(body))
	req.Header.Set(userIDHeader, "42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestVerifyHandler(t *testing.T) {
	service := &MockPaymentUseCase{}
	router := paymentRouter(service)

	service.On("VerifyPayment", mock.Anything, payment.VerifyInput{
		Provider:  "betapay",
		OrderID:   "order_3_1720000000000",
		PaymentID: "pay_1",
		Signature: "sig",
	}).Return(sampleReceipt(), nil).Once()

	body := `{"provider":"betapay","order_id":"order_3_1720000000000","payment_id":"pay_1","signature":"sig"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/verify", bytes.NewBufferString(body))
	req.Header.Set(userIDHeader, "42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp receiptResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(domain.BookingStatusConfirmed), resp.Booking.Status)
	assert.Equal(t, string(domain.PaymentStatusCompleted), resp.Payment.Status)
}

func TestVerifyHandler_MissingFields(t *testing.T) {
	service := &MockPaymentUseCase{}
	router := paymentRouter(service)

	body := `{"order_id":"order_3_1","payment_id":"","signature":"sig"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/verify", bytes.NewBufferString(body))
	req.Header.Set(userIDHeader, "42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "VerifyPayment", mock.Anything, mock.Anything)
}

func TestVerifyHandler_BadSignature(t *testing.T) {
	service := &MockPaymentUseCase{}
	router := paymentRouter(service)

	service.On("VerifyPayment", mock.Anything, mock.Anything).
		Return(nil, apperr.Client("invalid payment signature")).Once()

	body := `{"order_id":"order_3_1","payment_id":"pay_1","signature":"bogus"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/verify", bytes.NewBufferString(body))
	req.Header.Set(userIDHeader, "42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid payment signature")
}

func TestWebhookHandler(t *testing.T) {
	service := &MockPaymentUseCase{}
	router := paymentRouter(service)

	body := []byte(`{"event":"payment.captured"}`)
	service.On("HandleWebhook", mock.Anything, "betapay", body, "sig").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook/betapay", bytes.NewBuffer(body))
	req.Header.Set(webhookSignatureHeader, "sig")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestWebhookHandler_ConflictIsAcknowledged(t *testing.T) {
	// A capture that raced a cancellation must still return 200 so the
	// provider stops redelivering the event.
	service := &MockPaymentUseCase{}
	router := paymentRouter(service)

	body := []byte(`{"event":"payment.captured"}`)
	service.On("HandleWebhook", mock.Anything, "betapay", body, "sig").
		Return(apperr.Conflict("booking was cancelled before payment confirmation")).Once()

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook/betapay", bytes.NewBuffer(body))
	req.Header.Set(webhookSignatureHeader, "sig")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "acknowledged")
}

func TestWebhookHandler_BadSignature(t *testing.T) {
	service := &MockPaymentUseCase{}
	router := paymentRouter(service)

	body := []byte(`{"event":"payment.captured"}`)
	service.On("HandleWebhook", mock.Anything, "betapay", body, "bogus").
		Return(apperr.Client("invalid webhook signature")).Once()

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook/betapay", bytes.NewBuffer(body))
	req.Header.Set(webhookSignatureHeader, "bogus")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusHandler(t *testing.T) {
	service := &MockPaymentUseCase{}
	router := paymentRouter(service)

	service.On("OrderStatus", mock.Anything, "order_3_1720000000000").Return(sampleReceipt(), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/payments/status/order_3_1720000000000", nil)
	req.Header.Set(userIDHeader, "42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp receiptResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pay_1", resp.Payment.ProviderTxnID)
}

func TestStatusHandler_UnknownOrder(t *testing.T) {
	service := &MockPaymentUseCase{}
	router := paymentRouter(service)

	service.On("OrderStatus", mock.Anything, "order_99_1").
		Return(nil, apperr.NotFound(`order "order_99_1" not found`)).Once()

	req := httptest.NewRequest(http.MethodGet, "/payments/status/order_99_1", nil)
	req.Header.Set(userIDHeader, "42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
