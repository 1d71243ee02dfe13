package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product: stock is never stored here, it is derived from purchase and
// order items by the ledger package.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Code        string          `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name        string          `gorm:"size:150;not null" json:"name"`
	Description string          `gorm:"size:500" json:"description"`
	CategoryID  *uint           `gorm:"index" json:"category_id"`
	Category    *Category       `json:"category,omitempty"`
	Unit        string          `gorm:"size:20;not null" json:"unit"` // UND, KG, CAJA, PAQ...
	BasePrice   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"base_price"`
	ImageURL    string          `gorm:"size:500" json:"image_url"`
	ImageKey    string          `gorm:"size:300" json:"image_key"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
