package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/flatstay/internal/apperr"
	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/Domenick1991/flatstay/internal/service/units"
	"github.com/gin-gonic/gin"
)

type UnitHandler struct {
	service units.UnitUseCase
}

func NewUnitHandler(service units.UnitUseCase) *UnitHandler {
	return &UnitHandler{service: service}
}

func (h *UnitHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.GET("/:kind/:id", h.get)
	router.POST("/:kind/:id/confirm-review", h.confirmReview)
}

type unitResponse struct {
	ID           int64  `json:"id"`
	Kind         string `json:"kind"`
	Title        string `json:"title"`
	City         string `json:"city"`
	RateCents    int64  `json:"rate_cents"`
	Booked       bool   `json:"booked"`
	ReviewStatus string `json:"review_status,omitempty"`
}

func toUnitResponse(u *domain.Unit) unitResponse {
	return unitResponse{
		ID:           u.ID,
		Kind:         string(u.Kind),
		Title:        u.Title,
		City:         u.City,
		RateCents:    u.RateCents,
		Booked:       u.Booked,
		ReviewStatus: string(u.ReviewStatus),
	}
}

func (h *UnitHandler) list(c *gin.Context) {
	listed, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]unitResponse, 0, len(listed))
	for i := range listed {
		resp = append(resp, toUnitResponse(&listed[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UnitHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, apperr.Validation("invalid unit id"))
		return
	}

	u, err := h.service.Get(c.Request.Context(), domain.UnitKind(c.Param("kind")), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUnitResponse(u))
}

func (h *UnitHandler) confirmReview(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, apperr.Validation("invalid unit id"))
		return
	}

	u, err := h.service.ConfirmHandover(c.Request.Context(), domain.UnitKind(c.Param("kind")), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUnitResponse(u))
}
