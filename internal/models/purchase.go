package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase: compra a proveedor. Items are created with the header and only
// ever replaced as a whole.
type Purchase struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ProviderID      uint            `gorm:"index;not null" json:"provider_id"`
	Provider        *Provider       `json:"provider,omitempty"`
	Date            time.Time       `gorm:"index;not null" json:"date"`
	ReferenceNumber string          `gorm:"size:60;index" json:"reference_number"`
	Notes           string          `gorm:"size:500" json:"notes"`
	Total           decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Items []PurchaseItem `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE" json:"items"`
}

type PurchaseItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	PurchaseID uint            `gorm:"index;not null" json:"purchase_id"`
	ProductID  uint            `gorm:"index;not null" json:"product_id"`
	Product    *Product        `json:"product,omitempty"`
	Quantity   int64           `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	Subtotal   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	// Retenciones (porcentajes 0-100)
	RetentionSourcePct decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"retention_source_pct"`
	RetentionICAPct    decimal.Decimal `gorm:"column:retention_ica_pct;type:decimal(5,2);not null;default:0" json:"retention_ica_pct"`
	RetentionIVAPct    decimal.Decimal `gorm:"column:retention_iva_pct;type:decimal(5,2);not null;default:0" json:"retention_iva_pct"`
	CreatedAt          time.Time       `json:"created_at"`
}
