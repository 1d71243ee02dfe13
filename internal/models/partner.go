package models

import "time"

// DocumentType: tipo de documento de identificación del cliente.
type DocumentType string

const (
	DocumentCC  DocumentType = "CC"  // cédula de ciudadanía
	DocumentNIT DocumentType = "NIT" // empresa
	DocumentCE  DocumentType = "CE"  // cédula de extranjería
)

func (d DocumentType) Valid() bool {
	switch d {
	case DocumentCC, DocumentNIT, DocumentCE:
		return true
	}
	return false
}

// Client is the counterparty of a sale.
type Client struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	DocumentType   DocumentType `gorm:"size:5;not null" json:"document_type"`
	DocumentNumber string       `gorm:"size:30;uniqueIndex;not null" json:"document_number"`
	Name           string       `gorm:"size:150;not null" json:"name"`
	Email          string       `gorm:"size:120" json:"email"`
	Phone          string       `gorm:"size:30" json:"phone"`
	Address        string       `gorm:"size:255" json:"address"`
	City           string       `gorm:"size:80" json:"city"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Provider is the counterparty of a purchase.
type Provider struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	NIT         string    `gorm:"column:nit;size:30;uniqueIndex;not null" json:"nit"`
	Name        string    `gorm:"size:150;not null" json:"name"`
	ContactName string    `gorm:"size:120" json:"contact_name"`
	Email       string    `gorm:"size:120" json:"email"`
	Phone       string    `gorm:"size:30" json:"phone"`
	Address     string    `gorm:"size:255" json:"address"`
	City        string    `gorm:"size:80" json:"city"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
