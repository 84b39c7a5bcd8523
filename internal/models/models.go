package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusFailed   = "FAILED"
	PaymentStatusRefunded = "REFUNDED"
)

const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusFailed     = "FAILED"
	OrderStatusCancelled  = "CANCELLED"
)

type Category struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name     string `gorm:"not null"                  json:"name"`
	Slug     string `gorm:"uniqueIndex;not null"      json:"slug"`
	IsActive bool   `gorm:"default:true"              json:"is_active"`
}

// FormField describes one extra checkout input attached to a product,
// for example the player id of the account being topped up.
type FormField struct {
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

type Product struct {
	ID          uint             `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string           `gorm:"not null"                  json:"name"`
	Slug        string           `gorm:"uniqueIndex;not null"      json:"slug"`
	Description string           `json:"description"`
	ImageURL    string           `json:"image_url"`
	CategoryID  uint             `gorm:"index;not null"            json:"category_id"`
	IsActive    bool             `gorm:"default:true"              json:"is_active"`
	FormFields  datatypes.JSON   `json:"form_fields"`
	Variants    []ProductVariant `gorm:"constraint:OnDelete:CASCADE" json:"variants,omitempty"`
}

type ProductVariant struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	ProductID uint   `gorm:"index;not null"            json:"product_id"`
	Name      string `gorm:"not null"                  json:"name"`
	Price     int64  `gorm:"not null"                  json:"price"`
	IsActive  bool   `gorm:"default:true"              json:"is_active"`
	SortOrder int    `gorm:"default:0"                 json:"sort_order"`
}

type Order struct {
	ID              uint           `gorm:"primaryKey;autoIncrement"  json:"id"`
	OrderNumber     string         `gorm:"uniqueIndex;not null"      json:"order_number"`
	UserID          uint           `gorm:"index;not null"            json:"user_id"`
	Email           string         `gorm:"not null"                  json:"email"`
	ProductID       uint           `gorm:"index;not null"            json:"product_id"`
	UserFormData    datatypes.JSON `json:"user_form_data"`
	PaymentProvider string         `json:"payment_provider"`
	PaymentStatus   string         `gorm:"not null;default:'PENDING'" json:"payment_status"`
	Status          string         `gorm:"not null;default:'PENDING'" json:"status"`
	TotalAmount     int64          `gorm:"not null"                  json:"total_amount"`
	InvoiceID       string         `gorm:"index"                     json:"invoice_id,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	Items           []OrderItem    `json:"items,omitempty"`
}

// OrderItem keeps the variant price at order time so later price edits
// do not rewrite historical orders.
type OrderItem struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	OrderID     uint   `gorm:"index;not null"            json:"order_id"`
	VariantID   uint   `gorm:"not null"                  json:"variant_id"`
	VariantName string `json:"variant_name"`
	Quantity    uint   `gorm:"default:1;check:quantity>0" json:"quantity"`
	Price       int64  `gorm:"not null"                  json:"price"`
}

type User struct {
	ID            uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email         string `gorm:"uniqueIndex;not null"     json:"email"`
	Name          string `json:"name"`
	Image         string `json:"image,omitempty"`
	PasswordHash  string `gorm:"not null"                 json:"-"`
	EmailVerified bool   `gorm:"default:false"            json:"email_verified"`
	Role          string `gorm:"not null;default:'user'"  json:"role"`
	Banned        bool   `gorm:"default:false"            json:"banned"`
	BanReason     string `json:"ban_reason,omitempty"`
	BanExpires    int64  `json:"ban_expires,omitempty"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"           json:"id"`
	Token     string `gorm:"uniqueIndex;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"       json:"user_id"`
	ExpiresAt int64  `gorm:"not null"             json:"expires_at"`
	Revoked   bool   `gorm:"default:false"        json:"revoked"`
}

// Verification holds a single-use OTP for email verification or password
// reset. Rows are deleted on consumption or on expiry detection.
type Verification struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Identifier string `gorm:"index;not null"           json:"identifier"`
	Value      string `gorm:"not null"                 json:"-"`
	ExpiresAt  int64  `gorm:"not null"                 json:"expires_at"`
	UserID     uint   `gorm:"index"                    json:"user_id"`
}
