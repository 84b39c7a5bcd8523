package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rakibdev/topup-shop/internal/logging"
	"github.com/rakibdev/topup-shop/internal/models"
	"github.com/rakibdev/topup-shop/internal/mykafka"
	"github.com/rakibdev/topup-shop/internal/notify"
	"github.com/rakibdev/topup-shop/internal/payment"
	"github.com/rakibdev/topup-shop/internal/repo"
)

// ReconcileService synchronizes local order state with the gateway's
// authoritative verification response. It is invoked both by the customer's
// redirect back and by the provider webhook; the conditional claim in the
// repo keeps the two callers from double-applying the transition.
type ReconcileService struct {
	Repo     *repo.GormRepo
	Gateway  payment.Gateway
	Notify   *notify.Service
	Producer *mykafka.Producer
}

// Reconcile re-verifies the invoice with the provider and applies the fixed
// mapping COMPLETED→PAID/PROCESSING, FAILED→FAILED/FAILED. A PENDING
// verification writes nothing. The returned bool reports whether this call
// performed the transition.
func (s *ReconcileService) Reconcile(ctx context.Context, invoiceID string) (*models.Order, bool, error) {
	l := logging.FromContext(ctx).With("svc", "payment.reconcile", "invoice_id", invoiceID)

	if invoiceID == "" {
		return nil, false, fmt.Errorf("%w: invoice_id required", ErrValidation)
	}

	res, err := s.Gateway.VerifyPayment(ctx, invoiceID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: verify failed: %v", ErrUpstream, err)
	}

	// The provider's metadata is the source of truth for the correlation,
	// not a locally stored invoice index.
	orderID, err := strconv.ParseUint(res.Metadata["order_id"], 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("%w: verification carries no order_id", ErrNotFound)
	}
	order, err := s.Repo.GetOrder(ctx, uint(orderID))
	if err != nil {
		return nil, false, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}

	var paymentStatus, orderStatus string
	switch res.Status {
	case payment.StatusCompleted:
		paymentStatus, orderStatus = models.PaymentStatusPaid, models.OrderStatusProcessing
	case payment.StatusFailed:
		paymentStatus, orderStatus = models.PaymentStatusFailed, models.OrderStatusFailed
	default:
		l.Info("reconcile_noop", "provider_status", res.RawStatus)
		return order, false, nil
	}

	claimed, err := s.Repo.ClaimPaymentTransition(ctx, order.ID, paymentStatus, orderStatus)
	if err != nil {
		return nil, false, err
	}
	if !claimed {
		// Another caller already applied a transition; converged, no email.
		l.Info("reconcile_already_applied", "order_number", order.OrderNumber)
		order, err = s.Repo.GetOrder(ctx, order.ID)
		return order, false, err
	}

	order.PaymentStatus = paymentStatus
	order.Status = orderStatus

	if s.Notify != nil {
		s.Notify.PaymentStatus(ctx, order)
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, "payment_events", order.OrderNumber, map[string]interface{}{
		"type":           "payment_" + res.RawStatus,
		"order_id":       order.ID,
		"order_number":   order.OrderNumber,
		"invoice_id":     invoiceID,
		"payment_status": paymentStatus,
	}); err != nil {
		l.Error("kafka_publish_failed", "topic", "payment_events", "error", err)
	}

	l.Info("reconcile_applied", "order_number", order.OrderNumber, "payment_status", paymentStatus)
	return order, true, nil
}
