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

// BetaPay is the gateway that relies on a client-delivered signed
// (orderId, paymentId, signature) triple plus an asynchronous webhook.
// A payments listing endpoint still exists, so the poll path works here too.
type BetaPay struct {
	cfg    Config
	client *http.Client
}

func NewBetaPay(cfg Config) *BetaPay {
	return &BetaPay{cfg: cfg, client: cfg.httpClient()}
}

func (g *BetaPay) Name() domain.PaymentProvider { return domain.ProviderBetaPay }

type betaOrderRequest struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Email     string `json:"email"`
	Contact   string `json:"contact"`
}

type betaOrderResponse struct {
	ID            string `json:"id"`
	CheckoutToken string `json:"checkout_token"`
}

func (g *BetaPay) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body, err := json.Marshal(betaOrderRequest{
		Reference: req.OrderRef,
		Amount:    req.AmountCents,
		Currency:  req.Currency,
		Email:     req.PayerEmail,
		Contact:   req.PayerPhone,
	})
	if err != nil {
		return nil, apperr.Internal("encode betapay order", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Internal("build betapay request", err)
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

	var out betaOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperr.Provider("betapay returned malformed order", false, err)
	}
	// Reconciliation recovers the booking id from the order id, so an order
	// that does not echo the merchant reference is unusable.
	if out.ID != req.OrderRef {
		return nil, apperr.Provider(fmt.Sprintf("betapay did not echo order reference %q (got %q)", req.OrderRef, out.ID), false, nil)
	}
	return &Order{ProviderOrderID: out.ID, SessionToken: out.CheckoutToken}, nil
}

type betaPaymentEntity struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type betaPaymentsResponse struct {
	Items []betaPaymentEntity `json:"items"`
}

func (g *BetaPay) FetchStatus(ctx context.Context, providerOrderID string) (*PaymentInfo, error) {
	url := fmt.Sprintf("%s/v1/orders/%s/payments", g.cfg.BaseURL, providerOrderID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Internal("build betapay request", err)
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
	var out betaPaymentsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperr.Provider("betapay returned malformed payments", false, err)
	}

	info := &PaymentInfo{Status: StatusPending, Raw: raw}
	for _, p := range out.Items {
		switch p.Status {
		case "captured":
			info.Status = StatusSucceeded
			info.ProviderTxnID = p.ID
			return info, nil
		case "failed":
			info.Status = StatusFailed
			info.ProviderTxnID = p.ID
		}
	}
	return info, nil
}

func (g *BetaPay) VerifySignature(orderID, paymentID, signature string) bool {
	payload := []byte(orderID + "|" + paymentID)
	return verifyHMAC(payload, signature, g.cfg.KeySecret)
}

func (g *BetaPay) VerifyWebhook(body []byte, signature string) bool {
	return verifyHMAC(body, signature, g.cfg.WebhookSecret)
}

type betaWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			ID      string `json:"id"`
			OrderID string `json:"order_id"`
			Status  string `json:"status"`
		} `json:"payment"`
	} `json:"payload"`
}

func (g *BetaPay) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var in betaWebhook
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, apperr.Client("malformed betapay webhook payload")
	}

	ev := &WebhookEvent{
		Event:           in.Event,
		ProviderOrderID: in.Payload.Payment.OrderID,
		ProviderTxnID:   in.Payload.Payment.ID,
	}
	switch in.Event {
	case EventPaymentCaptured:
		ev.Status = StatusSucceeded
	case EventPaymentFailed:
		ev.Status = StatusFailed
	default:
		ev.Status = StatusPending
	}
	return ev, nil
}

var _ Gateway = (*BetaPay)(nil)
