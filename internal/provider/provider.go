// Package provider abstracts the upstream payment gateways behind one
// interface so the reconciliation engine stays provider-agnostic.
package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/flatstay/internal/apperr"
	"github.com/Domenick1991/flatstay/internal/domain"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

// OrderRequest carries everything a gateway needs to open an order.
// OrderRef is the merchant-supplied order identifier; both supported
// gateways accept and echo it back.
type OrderRequest struct {
	OrderRef    string
	AmountCents int64
	Currency    string
	PayerEmail  string
	PayerPhone  string
}

type Order struct {
	ProviderOrderID string
	SessionToken    string
}

// PaymentInfo is the normalised result of a status fetch.
type PaymentInfo struct {
	Status        Status
	ProviderTxnID string
	Raw           json.RawMessage
}

// WebhookEvent is the normalised envelope extracted from a provider webhook.
type WebhookEvent struct {
	Event           string
	ProviderOrderID string
	ProviderTxnID   string
	Status          Status
}

const EventPaymentCaptured = "payment.captured"
const EventPaymentFailed = "payment.failed"

type Gateway interface {
	Name() domain.PaymentProvider
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	FetchStatus(ctx context.Context, providerOrderID string) (*PaymentInfo, error)
	// VerifySignature checks the client-delivered HMAC over "orderID|paymentID".
	VerifySignature(orderID, paymentID, signature string) bool
	// VerifyWebhook checks the HMAC over the raw webhook body.
	VerifyWebhook(body []byte, signature string) bool
	ParseWebhook(body []byte) (*WebhookEvent, error)
}

// Config holds one gateway's credentials and endpoint.
type Config struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
}

func (c Config) httpClient() *http.Client {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// SignPayload computes the hex HMAC-SHA256 of payload under secret. Both
// gateways sign this way; only the payload and secret differ per path.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyHMAC(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// classifyStatus turns a non-2xx gateway response into the taxonomy error:
// 4xx is a client error and must not be retried, 5xx is transient.
func classifyStatus(name domain.PaymentProvider, code int) error {
	msg := fmt.Sprintf("%s returned status %d", name, code)
	if code >= 500 {
		return apperr.Provider(msg, true, nil)
	}
	return apperr.Provider(msg, false, nil)
}

func unreachable(name domain.PaymentProvider, err error) error {
	return apperr.Provider(fmt.Sprintf("%s unreachable", name), true, err)
}
