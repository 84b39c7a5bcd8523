package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/rakibdev/topup-shop/internal/models"
)

// CreateOrder persists the order together with its items in one transaction.
func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").
		Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrdersForUser(ctx context.Context, userID uint, offset, limit int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := q.Preload("Items").Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, status, paymentStatus string, offset, limit int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if paymentStatus != "" {
		q = q.Where("payment_status = ?", paymentStatus)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := q.Preload("Items").Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func (r *GormRepo) SetOrderInvoiceID(ctx context.Context, orderID uint, invoiceID string) error {
	return r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("invoice_id", invoiceID).Error
}

// ClaimPaymentTransition atomically moves an order out of PENDING payment
// state. The guard makes the reconciliation flow safe when the webhook and
// the redirect-back verify race each other: only one caller sees a row
// affected and owns the follow-up email.
func (r *GormRepo) ClaimPaymentTransition(ctx context.Context, orderID uint, paymentStatus, status string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status": paymentStatus,
			"status":         status,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateOrderStatus is the unguarded admin path: payment status and order
// status are independently settable here.
func (r *GormRepo) UpdateOrderStatus(ctx context.Context, orderID uint, fields map[string]interface{}) error {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
