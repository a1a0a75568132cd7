package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Domenick1991/flatstay/internal/apperr"
	"github.com/Domenick1991/flatstay/internal/domain"
)

// AlphaPay is the gateway with a pollable order-fetch API: after the client
// completes checkout, GET /v1/orders/{id} reports the final payment state.
type AlphaPay struct {
	cfg    Config
	client *http.Client
}

func NewAlphaPay(cfg Config) *AlphaPay {
	return &AlphaPay{cfg: cfg, client: cfg.httpClient()}
}

func (g *AlphaPay) Name() domain.PaymentProvider { return domain.ProviderAlphaPay }

type alphaOrderRequest struct {
	OrderID       string `json:"order_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type alphaOrderResponse struct {
	OrderID      string `json:"order_id"`
	SessionToken string `json:"session_token"`
}

func (g *AlphaPay) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body, err := json.Marshal(alphaOrderRequest{
		OrderID:       req.OrderRef,
		Amount:        req.AmountCents,
		Currency:      req.Currency,
		CustomerEmail: req.PayerEmail,
		CustomerPhone: req.PayerPhone,
	})
	if err != nil {
		return nil, apperr.Internal("encode alphapay order", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Internal("build alphapay request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(g.cfg.KeyID, g.cfg.KeySecret)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, unreachable(g.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyStatus(g.Name(), resp.StatusCode)
	}

	var out alphaOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperr.Provider("alphapay returned malformed order", false, err)
	}
	// Reconciliation recovers the booking id from the order id, so an order
	// that does not echo the merchant reference is unusable.
	if out.OrderID != req.OrderRef {
		return nil, apperr.Provider(fmt.Sprintf("alphapay did not echo order reference %q (got %q)", req.OrderRef, out.OrderID), false, nil)
	}
	return &Order{ProviderOrderID: out.OrderID, SessionToken: out.SessionToken}, nil
}

type alphaStatusResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	TxnID   string `json:"txn_id"`
}

func (g *AlphaPay) FetchStatus(ctx context.Context, providerOrderID string) (*PaymentInfo, error) {
	url := fmt.Sprintf("%s/v1/orders/%s", g.cfg.BaseURL, providerOrderID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Internal("build alphapay request", err)
	}
	httpReq.SetBasicAuth(g.cfg.KeyID, g.cfg.KeySecret)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, unreachable(g.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyStatus(g.Name(), resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unreachable(g.Name(), err)
	}
	var out alphaStatusResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperr.Provider("alphapay returned malformed status", false, err)
	}

	info := &PaymentInfo{ProviderTxnID: out.TxnID, Raw: raw}
	switch out.Status {
	case "PAID":
		info.Status = StatusSucceeded
	case "FAILED", "EXPIRED":
		info.Status = StatusFailed
	default:
		info.Status = StatusPending
	}
	return info, nil
}

func (g *AlphaPay) VerifySignature(orderID, paymentID, signature string) bool {
	payload := []byte(orderID + "|" + paymentID)
	return verifyHMAC(payload, signature, g.cfg.KeySecret)
}

func (g *AlphaPay) VerifyWebhook(body []byte, signature string) bool {
	return verifyHMAC(body, signature, g.cfg.WebhookSecret)
}

type alphaWebhook struct {
	Type string `json:"type"`
	Data struct {
		OrderID string `json:"order_id"`
		TxnID   string `json:"txn_id"`
	} `json:"data"`
}

func (g *AlphaPay) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var in alphaWebhook
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, apperr.Client("malformed alphapay webhook payload")
	}

	ev := &WebhookEvent{ProviderOrderID: in.Data.OrderID, ProviderTxnID: in.Data.TxnID}
	switch in.Type {
	case "PAYMENT_SUCCESS":
		ev.Event = EventPaymentCaptured
		ev.Status = StatusSucceeded
	case "PAYMENT_FAILED":
		ev.Event = EventPaymentFailed
		ev.Status = StatusFailed
	default:
		ev.Event = in.Type
		ev.Status = StatusPending
	}
	return ev, nil
}

var _ Gateway = (*AlphaPay)(nil)
