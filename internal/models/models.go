package models

import (
	"time"

	"github.com/google/uuid"
)

// All monetary amounts are carried in minor currency units (kobo).

type Product struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	Name          string    `gorm:"not null"                 json:"name"`
	Description   string    `json:"description"`
	PriceMinor    int64     `gorm:"not null"                 json:"price_minor"`
	Stock         *int64    `gorm:"index"                    json:"stock"` // nil = unlimited
	MerchantID    uuid.UUID `gorm:"type:uuid;index;not null" json:"merchant_id"`
	MerchantEmail string    `gorm:"not null"                 json:"merchant_email"`
	CreatedAt     time.Time `json:"created_at"`
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey"                                            json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_product"  json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_product"  json:"product_id"`
	Quantity  int64     `gorm:"default:1;check:quantity>0"                            json:"quantity"`

	Product *Product `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Order struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"     json:"id"`
	CustomerID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"customer_id"`
	CustomerEmail    string     `gorm:"not null"                 json:"customer_email"`
	Status           string     `gorm:"not null;index"           json:"status"`
	PaymentMethod    string     `gorm:"not null"                 json:"payment_method"`
	PaymentStatus    string     `gorm:"not null"                 json:"payment_status"`
	TotalMinor       int64      `gorm:"not null"                 json:"total_minor"`
	PaymentReference *string    `gorm:"uniqueIndex"              json:"payment_reference,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time  `gorm:"index"                    json:"created_at"`

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// OrderItem freezes product price (and merchant) at order-creation time.
// Rows are never updated after creation.
type OrderItem struct {
	ID            uint      `gorm:"primaryKey"                 json:"id"`
	OrderID       uuid.UUID `gorm:"type:uuid;index;not null"   json:"order_id"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null"         json:"product_id"`
	MerchantID    uuid.UUID `gorm:"type:uuid;index;not null"   json:"merchant_id"`
	MerchantEmail string    `gorm:"not null"                   json:"-"`
	Quantity      int64     `gorm:"not null;check:quantity>0"  json:"quantity"`
	PriceMinor    int64     `gorm:"not null"                   json:"price_minor"`

	Product *Product `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}
