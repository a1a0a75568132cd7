package api

import (
	"io"
	"net/http"

	"github.com/Domenick1991/flatstay/internal/apperr"
	"github.com/Domenick1991/flatstay/internal/service/payment"
	"github.com/gin-gonic/gin"
)

const webhookSignatureHeader = "X-Webhook-Signature"

type PaymentHandler struct {
	service payment.PaymentUseCase
}

func NewPaymentHandler(service payment.PaymentUseCase) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/create-order", h.createOrder)
	router.POST("/verify", h.verify)
	router.POST("/webhook/:provider", h.webhook)
	router.GET("/status/:orderId", h.status)
}

type createOrderRequest struct {
	BookingID   int64  `json:"booking_id"`
	AmountCents int64  `json:"amount_cents"`
	Provider    string `json:"provider"`
}

type orderSessionResponse struct {
	Provider        string `json:"provider"`
	ProviderOrderID string `json:"provider_order_id"`
	SessionToken    string `json:"session_token"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
}

func (h *PaymentHandler) createOrder(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.service.CreateOrder(c.Request.Context(), payment.CreateOrderInput{
		BookingID:   req.BookingID,
		PayerID:     userID,
		AmountCents: req.AmountCents,
		Provider:    req.Provider,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, orderSessionResponse{
		Provider:        string(session.Provider),
		ProviderOrderID: session.ProviderOrderID,
		SessionToken:    session.SessionToken,
		AmountCents:     session.AmountCents,
		Currency:        session.Currency,
	})
}

type verifyRequest struct {
	Provider  string `json:"provider"`
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

type receiptResponse struct {
	Booking bookingResponse `json:"booking"`
	Payment paymentResponse `json:"payment"`
}

type paymentResponse struct {
	ID              int64  `json:"id"`
	BookingID       int64  `json:"booking_id"`
	Provider        string `json:"provider"`
	ProviderOrderID string `json:"provider_order_id"`
	ProviderTxnID   string `json:"provider_txn_id,omitempty"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
}

func toReceiptResponse(r *payment.Receipt) receiptResponse {
	return receiptResponse{
		Booking: toBookingResponse(r.Booking),
		Payment: paymentResponse{
			ID:              r.Payment.ID,
			BookingID:       r.Payment.BookingID,
			Provider:        string(r.Payment.Provider),
			ProviderOrderID: r.Payment.ProviderOrderID,
			ProviderTxnID:   r.Payment.ProviderTxnID,
			AmountCents:     r.Payment.AmountCents,
			Currency:        r.Payment.Currency,
			Status:          string(r.Payment.Status),
		},
	}
}

func (h *PaymentHandler) verify(c *gin.Context) {
	if _, ok := requestUserID(c); !ok {
		return
	}

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		respondError(c, apperr.Validation("order_id, payment_id and signature are required"))
		return
	}

	receipt, err := h.service.VerifyPayment(c.Request.Context(), payment.VerifyInput{
		Provider:  req.Provider,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toReceiptResponse(receipt))
}

// webhook is provider-facing: no user identity, authenticated by the HMAC
// signature over the raw body.
func (h *PaymentHandler) webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, apperr.Validation("unreadable webhook body"))
		return
	}

	err = h.service.HandleWebhook(c.Request.Context(), c.Param("provider"), body, c.GetHeader(webhookSignatureHeader))
	if err != nil {
		// Conflicts here mean the event raced another trigger or hit a
		// cancelled booking; the provider should not retry those.
		if apperr.KindOf(err) == apperr.KindConflict {
			c.JSON(http.StatusOK, gin.H{"status": "acknowledged"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *PaymentHandler) status(c *gin.Context) {
	if _, ok := requestUserID(c); !ok {
		return
	}

	receipt, err := h.service.OrderStatus(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toReceiptResponse(receipt))
}
