package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/flatstay/internal/apperr"
	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/Domenick1991/flatstay/internal/service/booking"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	UnitKind  string `json:"unit_kind"`
	UnitID    int64  `json:"unit_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type bookingResponse struct {
	ID          int64  `json:"id"`
	UnitKind    string `json:"unit_kind"`
	UnitID      int64  `json:"unit_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:          b.ID,
		UnitKind:    string(b.UnitKind),
		UnitID:      b.UnitID,
		StartDate:   b.StartDate.Format(dateLayout),
		EndDate:     b.EndDate.Format(dateLayout),
		AmountCents: b.AmountCents,
		Status:      string(b.Status),
	}
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		respondError(c, apperr.Validation("invalid start_date, want YYYY-MM-DD"))
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		respondError(c, apperr.Validation("invalid end_date, want YYYY-MM-DD"))
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		UnitKind:  domain.UnitKind(req.UnitKind),
		UnitID:    req.UnitID,
		RenterID:  userID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) get(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, apperr.Validation("invalid booking id"))
		return
	}

	b, err := h.service.GetBooking(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, apperr.Validation("invalid booking id"))
		return
	}

	cancelled, err := h.service.CancelBooking(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(cancelled))
}
