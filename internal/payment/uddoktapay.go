package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rakibdev/topup-shop/internal/logging"
)

const APIKeyHeader = "RT-UDDOKTAPAY-API-KEY"

// UddoktaPay implements Gateway against the UddoktaPay checkout API.
type UddoktaPay struct {
	APIKey  string
	BaseURL string

	// RedirectURL, CancelURL and WebhookURL are embedded into every checkout
	// so the provider can send the customer and the webhook back to us.
	RedirectURL string
	CancelURL   string
	WebhookURL  string

	Client *http.Client
}

func NewUddoktaPay(apiKey, baseURL, publicBaseURL string) *UddoktaPay {
	base := strings.TrimRight(publicBaseURL, "/")
	return &UddoktaPay{
		APIKey:      apiKey,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		RedirectURL: base + "/payment/success",
		CancelURL:   base + "/payment/cancel",
		WebhookURL:  base + "/api/payments/webhook/uddoktapay",
		Client:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (u *UddoktaPay) post(ctx context.Context, path string, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("uddoktapay: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("uddoktapay: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(APIKeyHeader, u.APIKey)

	resp, err := u.Client.Do(req)
	if err != nil {
		return fmt.Errorf("uddoktapay: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("uddoktapay: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("uddoktapay: status %d: %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("uddoktapay: decode response: %w", err)
	}
	return nil
}

func (u *UddoktaPay) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	metadata := map[string]string{
		"order_id":     strconv.FormatUint(uint64(req.OrderID), 10),
		"order_number": req.OrderNumber,
	}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	payload := map[string]interface{}{
		"full_name":    req.CustomerName,
		"email":        req.CustomerEmail,
		"amount":       strconv.FormatInt(req.Amount, 10),
		"metadata":     metadata,
		"redirect_url": u.RedirectURL,
		"cancel_url":   u.CancelURL,
		"webhook_url":  u.WebhookURL,
		"return_type":  "GET",
	}

	var resp struct {
		Status     bool   `json:"status"`
		Message    string `json:"message"`
		PaymentURL string `json:"payment_url"`
	}
	if err := u.post(ctx, "/api/checkout-v2", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Status || resp.PaymentURL == "" {
		return nil, fmt.Errorf("uddoktapay: checkout rejected: %s", resp.Message)
	}

	// The invoice id is the last path segment of the checkout URL; the
	// provider does not return it as a separate field on create.
	invoiceID := resp.PaymentURL
	if i := strings.LastIndex(resp.PaymentURL, "/"); i >= 0 {
		invoiceID = resp.PaymentURL[i+1:]
	}

	return &CreateResult{PaymentURL: resp.PaymentURL, InvoiceID: invoiceID}, nil
}

func (u *UddoktaPay) VerifyPayment(ctx context.Context, invoiceID string) (*VerifyResult, error) {
	payload := map[string]string{"invoice_id": invoiceID}

	var resp struct {
		Status    string            `json:"status"`
		InvoiceID string            `json:"invoice_id"`
		Amount    string            `json:"amount"`
		Metadata  map[string]string `json:"metadata"`
	}
	if err := u.post(ctx, "/api/verify-payment", payload, &resp); err != nil {
		return nil, err
	}

	return &VerifyResult{
		Status:    mapProviderStatus(ctx, resp.Status),
		InvoiceID: resp.InvoiceID,
		Amount:    resp.Amount,
		Metadata:  resp.Metadata,
		RawStatus: resp.Status,
	}, nil
}

// mapProviderStatus folds provider status strings into the internal
// three-value vocabulary. Anything unrecognized stays PENDING so a later
// verification can still move the order to a terminal state.
func mapProviderStatus(ctx context.Context, s string) Status {
	switch strings.ToUpper(s) {
	case "COMPLETED":
		return StatusCompleted
	case "FAILED", "CANCELLED", "CANCELED":
		return StatusFailed
	case "PENDING":
		return StatusPending
	default:
		logging.FromContext(ctx).Warn("unknown_provider_status", "provider", "uddoktapay", "status", s)
		return StatusPending
	}
}
