package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/flatstay/internal/apperr"
	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/Domenick1991/flatstay/internal/service/units"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockUnitUseCase struct {
	mock.Mock
}

func (m *MockUnitUseCase) List(ctx context.Context) ([]domain.Unit, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Unit), args.Error(1)
}

func (m *MockUnitUseCase) Get(ctx context.Context, kind domain.UnitKind, id int64) (*domain.Unit, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Unit), args.Error(1)
}

func (m *MockUnitUseCase) ConfirmHandover(ctx context.Context, kind domain.UnitKind, id, actorID int64) (*domain.Unit, error) {
	args := m.Called(ctx, kind, id, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Unit), args.Error(1)
}

func unitRouter(service units.UnitUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewUnitHandler(service).Register(router.Group("/units"))
	return router
}

func TestListUnitsHandler(t *testing.T) {
	service := &MockUnitUseCase{}
	router := unitRouter(service)

	service.On("List", mock.Anything).Return([]domain.Unit{
		{ID: 1, Kind: domain.UnitKindFlat, Title: "2BHK near the park", RateCents: 250000},
		{ID: 2, Kind: domain.UnitKindPG, Title: "Single room, Koramangala", RateCents: 80000},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/units/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2BHK near the park")
	assert.Contains(t, w.Body.String(), "Koramangala")
}

func TestGetUnitHandler_NotFound(t *testing.T) {
	service := &MockUnitUseCase{}
	router := unitRouter(service)

	service.On("Get", mock.Anything, domain.UnitKindPG, int64(99)).
		Return(nil, apperr.NotFound("unit PG/99 not found")).Once()

	req := httptest.NewRequest(http.MethodGet, "/units/PG/99", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfirmReviewHandler(t *testing.T) {
	service := &MockUnitUseCase{}
	router := unitRouter(service)

	service.On("ConfirmHandover", mock.Anything, domain.UnitKindFlat, int64(5), int64(201)).
		Return(&domain.Unit{ID: 5, Kind: domain.UnitKindFlat, ReviewStatus: domain.ReviewStatusConfirmed}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/units/FLAT/5/confirm-review", nil)
	req.Header.Set(userIDHeader, "201")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(domain.ReviewStatusConfirmed))
	service.AssertExpectations(t)
}

func TestConfirmReviewHandler_NotUnderReview(t *testing.T) {
	service := &MockUnitUseCase{}
	router := unitRouter(service)

	service.On("ConfirmHandover", mock.Anything, domain.UnitKindFlat, int64(5), int64(201)).
		Return(nil, apperr.Conflict("unit is not under review")).Once()

	req := httptest.NewRequest(http.MethodPost, "/units/FLAT/5/confirm-review", nil)
	req.Header.Set(userIDHeader, "201")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
