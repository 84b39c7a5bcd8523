package payment

import "context"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

type CreateRequest struct {
	OrderID       uint
	OrderNumber   string
	Amount        int64
	CustomerName  string
	CustomerEmail string
	Metadata      map[string]string
}

type CreateResult struct {
	PaymentURL string
	InvoiceID  string
}

type VerifyResult struct {
	Status    Status
	InvoiceID string
	Amount    string
	Metadata  map[string]string
	// RawStatus is the provider status string before mapping, kept for logs.
	RawStatus string
}

// Gateway is the narrow surface the order and reconciliation services need
// from a payment provider.
type Gateway interface {
	CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error)
	VerifyPayment(ctx context.Context, invoiceID string) (*VerifyResult, error)
}
