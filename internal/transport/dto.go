package transport

import "github.com/rakibdev/topup-shop/internal/models"

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Image *string `json:"image"`
}

type CategoryRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	IsActive *bool  `json:"is_active"`
}

type VariantRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	IsActive *bool  `json:"is_active"`
}

type ProductRequest struct {
	Name        string             `json:"name"`
	Slug        string             `json:"slug"`
	Description string             `json:"description"`
	ImageURL    string             `json:"image_url"`
	CategoryID  uint               `json:"category_id"`
	IsActive    *bool              `json:"is_active"`
	FormFields  []models.FormField `json:"form_fields"`
	Variants    []VariantRequest   `json:"variants"`
}

type CreateOrderRequest struct {
	ProductID    uint              `json:"product_id"`
	VariantID    uint              `json:"variant_id"`
	Email        string            `json:"email"`
	CustomerName string            `json:"customer_name"`
	FormData     map[string]string `json:"form_data"`
}

type AdminOrderUpdateRequest struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"payment_status"`
	Notes         *string `json:"notes"`
}

type AdminUserUpdateRequest struct {
	Role       *string `json:"role"`
	Banned     *bool   `json:"banned"`
	BanReason  *string `json:"ban_reason"`
	BanExpires *int64  `json:"ban_expires"`
}

type CreatePaymentRequest struct {
	OrderID uint `json:"order_id"`
}

type VerifyPaymentRequest struct {
	InvoiceID string `json:"invoice_id"`
}

// WebhookRequest is the provider's webhook body. Only invoice_id is
// trusted; everything else is re-verified against the provider.
type WebhookRequest struct {
	InvoiceID string `json:"invoice_id"`
	Status    string `json:"status"`
}
