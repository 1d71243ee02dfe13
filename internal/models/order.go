package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Order: venta a cliente.
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ClientID        uint            `gorm:"index;not null" json:"client_id"`
	Client          *Client         `json:"client,omitempty"`
	Date            time.Time       `gorm:"index;not null" json:"date"`
	ReferenceNumber string          `gorm:"size:60;index" json:"reference_number"`
	Notes           string          `gorm:"size:500" json:"notes"`
	Status          OrderStatus     `gorm:"size:20;index;not null" json:"status"`
	Total           decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"index;not null" json:"order_id"`
	ProductID uint            `gorm:"index;not null" json:"product_id"`
	Product   *Product        `json:"product,omitempty"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}
