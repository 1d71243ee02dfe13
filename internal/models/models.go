package models

import "github.com/shopspring/decimal"

func init() {
	// Montos viajan como números en JSON, no como strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// All lists every model handled by AutoMigrate, parents before children.
func All() []any {
	return []any{
		&User{},
		&Client{},
		&Provider{},
		&Category{},
		&Product{},
		&Purchase{},
		&PurchaseItem{},
		&Order{},
		&OrderItem{},
		&CashFlow{},
		&StoredFile{},
		&AuditLog{},
	}
}

// InCents reports whether d is stored as-is in a decimal(_,2) column.
func InCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
