// Package seed creates the first admin account and the base categories.
// Running it again changes nothing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"distribuidora-backend/internal/auth"
	"distribuidora-backend/internal/models"

	"gorm.io/gorm"
)

var BaseCategories = []models.Category{
	{Name: "Abarrotes", Description: "Granos, harinas, aceites y enlatados"},
	{Name: "Bebidas", Description: "Gaseosas, jugos y agua"},
	{Name: "Lácteos", Description: "Leche, quesos y derivados"},
	{Name: "Aseo", Description: "Aseo personal y del hogar"},
	{Name: "Snacks", Description: "Paquetes y dulces"},
}

type Admin struct {
	Name     string
	Username string
	Email    string
	Password string
}

func Run(ctx context.Context, db *gorm.DB, admin Admin) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAdmin(tx, admin); err != nil {
			return err
		}
		for _, c := range BaseCategories {
			cat := c
			if err := tx.Where("name = ?", cat.Name).FirstOrCreate(&cat).Error; err != nil {
				return fmt.Errorf("categoría %s: %w", cat.Name, err)
			}
		}
		slog.Info("base categories ready", slog.Int("count", len(BaseCategories)))
		return nil
	})
}

func ensureAdmin(tx *gorm.DB, a Admin) error {
	a.Username = strings.ToLower(strings.TrimSpace(a.Username))
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	if a.Username == "" || a.Email == "" {
		return errors.New("SEED_ADMIN_USERNAME y SEED_ADMIN_EMAIL son obligatorios")
	}

	var existing models.User
	err := tx.Where("username = ? OR email = ?", a.Username, a.Email).First(&existing).Error
	if err == nil {
		slog.Info("admin already exists, skipping", slog.String("username", existing.Username))
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if len(a.Password) < auth.MinPasswordLen {
		return fmt.Errorf("SEED_ADMIN_PASSWORD debe tener al menos %d caracteres", auth.MinPasswordLen)
	}
	hash, err := auth.HashPassword(a.Password)
	if err != nil {
		return err
	}
	u := models.User{
		Name:         a.Name,
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := tx.Create(&u).Error; err != nil {
		return fmt.Errorf("admin: %w", err)
	}
	slog.Info("admin created", slog.String("username", u.Username))
	return nil
}
