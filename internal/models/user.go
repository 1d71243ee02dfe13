package models

import "time"

type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleSeller   UserRole = "SELLER"
	RoleCustomer UserRole = "CUSTOMER"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleSeller, RoleCustomer:
		return true
	}
	return false
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:120;not null" json:"name"`
	Username     string    `gorm:"size:60;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:120;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         UserRole  `gorm:"size:20;not null" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
