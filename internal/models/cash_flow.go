package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CashFlowType string

const (
	CashFlowIncome  CashFlowType = "INCOME"
	CashFlowExpense CashFlowType = "EXPENSE"
)

func (t CashFlowType) Valid() bool {
	return t == CashFlowIncome || t == CashFlowExpense
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentCard     PaymentMethod = "CARD"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentTransfer, PaymentCard:
		return true
	}
	return false
}

// CashFlow is independent from purchases and orders.
type CashFlow struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Date          time.Time       `gorm:"index;not null" json:"date"`
	Type          CashFlowType    `gorm:"size:10;index;not null" json:"type"`
	Counterparty  string          `gorm:"size:150;not null" json:"counterparty"`
	Concept       string          `gorm:"size:255" json:"concept"`
	PaymentMethod PaymentMethod   `gorm:"size:20;not null" json:"payment_method"`
	Amount        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
