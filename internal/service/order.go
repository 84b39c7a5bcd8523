package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rakibdev/topup-shop/internal/logging"
	"github.com/rakibdev/topup-shop/internal/models"
	"github.com/rakibdev/topup-shop/internal/mykafka"
	"github.com/rakibdev/topup-shop/internal/notify"
	"github.com/rakibdev/topup-shop/internal/payment"
	"github.com/rakibdev/topup-shop/internal/repo"
	"github.com/rakibdev/topup-shop/internal/transport"
)

const (
	maxFormFields     = 20
	maxFormKeyLen     = 100
	maxFormValueLen   = 500
	providerUddokta   = "uddoktapay"
)

type OrderService struct {
	Repo     *repo.GormRepo
	Gateway  payment.Gateway
	Notify   *notify.Service
	Producer *mykafka.Producer
}

type CreateOrderResult struct {
	Order      *models.Order
	PaymentURL string
	// PaymentFailed is set when checkout creation at the gateway failed.
	// The order itself is kept; the customer is assisted manually.
	PaymentFailed bool
}

func (s *OrderService) CreateOrder(ctx context.Context, userID uint, req transport.CreateOrderRequest) (*CreateOrderResult, error) {
	l := logging.FromContext(ctx).With("svc", "order.create_order", "user_id", userID)

	if userID == 0 {
		return nil, fmt.Errorf("%w: login required", ErrUnauthorized)
	}
	if req.Email == "" {
		return nil, fmt.Errorf("%w: email required", ErrValidation)
	}
	if len(req.FormData) > maxFormFields {
		return nil, fmt.Errorf("%w: too many form fields (max %d)", ErrValidation, maxFormFields)
	}

	prod, err := s.Repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, req.ProductID)
		}
		return nil, err
	}
	if !prod.IsActive {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, req.ProductID)
	}
	variant, err := s.Repo.GetVariant(ctx, req.ProductID, req.VariantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: variant %d", ErrNotFound, req.VariantID)
		}
		return nil, err
	}
	if !variant.IsActive {
		return nil, fmt.Errorf("%w: variant %d", ErrNotFound, req.VariantID)
	}

	formData, err := json.Marshal(SanitizeFormData(req.FormData))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid form data", ErrValidation)
	}

	order := &models.Order{
		OrderNumber:     GenerateOrderNumber(),
		UserID:          userID,
		Email:           req.Email,
		ProductID:       prod.ID,
		UserFormData:    datatypes.JSON(formData),
		PaymentProvider: providerUddokta,
		PaymentStatus:   models.PaymentStatusPending,
		Status:          models.OrderStatusPending,
		TotalAmount:     variant.Price,
		Items: []models.OrderItem{{
			VariantID:   variant.ID,
			VariantName: variant.Name,
			Quantity:    1,
			Price:       variant.Price,
		}},
	}

	if err := s.Repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	result := &CreateOrderResult{Order: order}

	payRes, err := s.Gateway.CreatePayment(ctx, payment.CreateRequest{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Amount:        order.TotalAmount,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.Email,
	})
	if err != nil {
		// Checkout failure does not roll the order back; it is surfaced as
		// a flag and the order stays PENDING.
		l.Error("payment_create_failed", "order_number", order.OrderNumber, "error", err)
		result.PaymentFailed = true
	} else {
		result.PaymentURL = payRes.PaymentURL
		if err := s.Repo.SetOrderInvoiceID(ctx, order.ID, payRes.InvoiceID); err != nil {
			l.Error("invoice_id_save_failed", "order_number", order.OrderNumber, "error", err)
		} else {
			order.InvoiceID = payRes.InvoiceID
		}
	}

	if s.Notify != nil {
		s.Notify.OrderConfirmation(ctx, order)
	}
	s.publish(ctx, order.OrderNumber, map[string]interface{}{
		"type":         "order_created",
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
		"total":        order.TotalAmount,
	})

	l.Info("order_created", "order_number", order.OrderNumber)
	return result, nil
}

// RetryPayment creates a fresh gateway checkout for an order whose first
// attempt failed or whose link expired. Only orders still awaiting payment
// qualify; a PAID or FAILED order is final for this path.
func (s *OrderService) RetryPayment(ctx context.Context, userID uint, isAdmin bool, orderID uint) (string, error) {
	l := logging.FromContext(ctx).With("svc", "order.retry_payment", "order_id", orderID)

	order, err := s.GetOrder(ctx, orderID, userID, isAdmin)
	if err != nil {
		return "", err
	}
	if order.PaymentStatus != models.PaymentStatusPending {
		return "", fmt.Errorf("%w: payment already %s", ErrConflict, order.PaymentStatus)
	}

	payRes, err := s.Gateway.CreatePayment(ctx, payment.CreateRequest{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Amount:        order.TotalAmount,
		CustomerEmail: order.Email,
	})
	if err != nil {
		l.Error("payment_create_failed", "order_number", order.OrderNumber, "error", err)
		return "", fmt.Errorf("%w: checkout failed: %v", ErrUpstream, err)
	}
	if err := s.Repo.SetOrderInvoiceID(ctx, order.ID, payRes.InvoiceID); err != nil {
		return "", err
	}

	l.Info("payment_recreated", "order_number", order.OrderNumber, "invoice_id", payRes.InvoiceID)
	return payRes.PaymentURL, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id, userID uint, isAdmin bool) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	return order, nil
}

func (s *OrderService) ListOrdersForUser(ctx context.Context, userID uint, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListOrdersForUser(ctx, userID, offset, limit)
}

func (s *OrderService) ListOrders(ctx context.Context, status, paymentStatus string, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListOrders(ctx, status, paymentStatus, offset, limit)
}

// UpdateOrderAdmin lets an admin set order status, payment status and notes
// independently of the reconciliation mapping.
func (s *OrderService) UpdateOrderAdmin(ctx context.Context, id uint, req transport.AdminOrderUpdateRequest) (*models.Order, error) {
	fields := map[string]interface{}{}
	if req.Status != nil {
		if !validOrderStatus(*req.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *req.Status)
		}
		fields["status"] = *req.Status
	}
	if req.PaymentStatus != nil {
		if !validPaymentStatus(*req.PaymentStatus) {
			return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, *req.PaymentStatus)
		}
		fields["payment_status"] = *req.PaymentStatus
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	if err := s.Repo.UpdateOrderStatus(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.Repo.GetOrder(ctx, id)
}

func (s *OrderService) publish(ctx context.Context, key string, event map[string]interface{}) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, "order_events", key, event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "topic", "order_events", "error", err)
	}
}

// GenerateOrderNumber builds ORD-<base36 timestamp>-<8 hex>. No uniqueness
// retry: the random width makes a collision negligible.
func GenerateOrderNumber() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("ORD-%s-%s", strings.ToUpper(ts), strings.ToUpper(random))
}

// SanitizeFormData normalizes the free-form checkout fields: keys keep only
// [A-Za-z0-9_] (everything else becomes '_'), values lose angle brackets,
// get trimmed and are truncated.
func SanitizeFormData(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		key := sanitizeKey(k)
		if key == "" {
			continue
		}
		if len(key) > maxFormKeyLen {
			key = key[:maxFormKeyLen]
		}
		val := strings.NewReplacer("<", "", ">", "").Replace(v)
		val = strings.TrimSpace(val)
		if len(val) > maxFormValueLen {
			val = val[:maxFormValueLen]
		}
		out[key] = val
	}
	return out
}

func sanitizeKey(k string) string {
	var b strings.Builder
	for _, r := range k {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), " ")
}

func validOrderStatus(s string) bool {
	switch s {
	case models.OrderStatusPending, models.OrderStatusProcessing, models.OrderStatusCompleted,
		models.OrderStatusFailed, models.OrderStatusCancelled:
		return true
	}
	return false
}

func validPaymentStatus(s string) bool {
	switch s {
	case models.PaymentStatusPending, models.PaymentStatusPaid,
		models.PaymentStatusFailed, models.PaymentStatusRefunded:
		return true
	}
	return false
}
