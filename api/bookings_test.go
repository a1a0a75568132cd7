package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/flatstay/internal/apperr"
	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/Domenick1991/flatstay/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, bookingID, renterID int64) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, renterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, bookingID, requesterID int64) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) IsAvailable(ctx context.Context, kind domain.UnitKind, unitID int64, start, end time.Time, excludeBookingID int64) (bool, error) {
	args := m.Called(ctx, kind, unitID, start, end, excludeBookingID)
	return args.Bool(0), args.Error(1)
}

func bookingRouter(service booking.BookingUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewBookingHandler(service).Register(router.Group("/bookings"))
	return router
}

func sampleBooking() *domain.Booking {
	start, _ := time.Parse(dateLayout, "2024-07-01")
	end, _ := time.Parse(dateLayout, "2024-07-10")
	return &domain.Booking{
		ID:          3,
		UnitKind:    domain.UnitKindFlat,
		UnitID:      5,
		RenterID:    42,
		StartDate:   start,
		EndDate:     end,
		AmountCents: 2250000,
		Status:      domain.BookingStatusPending,
	}
}

func TestCreateBookingHandler(t *testing.T) {
	service := &MockBookingUseCase{}
	router := bookingRouter(service)

	service.On("CreateBooking", mock.Anything, booking.CreateBookingInput{
		UnitKind:  domain.UnitKindFlat,
		UnitID:    5,
		RenterID:  42,
		StartDate: sampleBooking().StartDate,
		EndDate:   sampleBooking().EndDate,
	}).Return(sampleBooking(), nil).Once()

	body := `{"unit_kind":"FLAT","unit_id":5,"start_date":"2024-07-01","end_date":"2024-07-10"}`
	req := httptest.NewRequest(http.MethodPost, "/bookings/", bytes.NewBufferString(body))
	req.Header.Set(userIDHeader, "42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp bookingResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.ID)
	assert.Equal(t, "2024-07-01", resp.StartDate)
	assert.Equal(t, int64(2250000), resp.AmountCents)
	service.AssertExpectations(t)
}

func TestCreateBookingHandler_MissingIdentity(t *testing.T) {
	service := &MockBookingUseCase{}
	router := bookingRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/bookings/", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	service.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBookingHandler_BadDate(t *testing.T) {
	service := &MockBookingUseCase{}
	router := bookingRouter(service)

	body := `{"unit_kind":"FLAT","unit_id":5,"start_date":"01/07/2024","end_date":"2024-07-10"}`
	req := httptest.NewRequest(http.MethodPost, "/bookings/", bytes.NewBufferString(body))
	req.Header.Set(userIDHeader, "42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBookingHandler_Conflict(t *testing.T) {
	service := &MockBookingUseCase{}
	router := bookingRouter(service)

	service.On("CreateBooking", mock.Anything, mock.Anything).
		Return(nil, apperr.Conflict("unit is already booked for the requested dates")).Once()

	body := `{"unit_kind":"FLAT","unit_id":5,"start_date":"2024-07-01","end_date":"2024-07-10"}`
	req := httptest.NewRequest(http.MethodPost, "/bookings/", bytes.NewBufferString(body))
	req.Header.Set(userIDHeader, "42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already booked")
}

func TestCancelBookingHandler(t *testing.T) {
	service := &MockBookingUseCase{}
	router := bookingRouter(service)

	cancelled := sampleBooking()
	cancelled.Status = domain.BookingStatusCancelled
	service.On("CancelBooking", mock.Anything, int64(3), int64(42)).Return(cancelled, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/bookings/3", nil)
	req.Header.Set(userIDHeader, "42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(domain.BookingStatusCancelled))
}

func TestCancelBookingHandler_Forbidden(t *testing.T) {
	service := &MockBookingUseCase{}
	router := bookingRouter(service)

	service.On("CancelBooking", mock.Anything, int64(3), int64(999)).
		Return(nil, apperr.Forbidden("booking does not belong to the caller")).Once()

	req := httptest.NewRequest(http.MethodDelete, "/bookings/3", nil)
	req.Header.Set(userIDHeader, "999")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetBookingHandler_NotFound(t *testing.T) {
	service := &MockBookingUseCase{}
	router := bookingRouter(service)

	service.On("GetBooking", mock.Anything, int64(77), int64(42)).
		Return(nil, apperr.NotFound("booking 77 not found")).Once()

	req := httptest.NewRequest(http.MethodGet, "/bookings/77", nil)
	req.Header.Set(userIDHeader, "42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetBookingHandler_InternalErrorIsMasked(t *testing.T) {
	service := &MockBookingUseCase{}
	router := bookingRouter(service)

	service.On("GetBooking", mock.Anything, int64(3), int64(42)).
		Return(nil, apperr.Internal("load booking", assert.AnError)).Once()

	req := httptest.NewRequest(http.MethodGet, "/bookings/3", nil)
	req.Header.Set(userIDHeader, "42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal error")
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}
