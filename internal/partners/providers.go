package partners

import (
	"errors"
	"fmt"
	"strings"

	"distribuidora-backend/internal/audit"
	"distribuidora-backend/internal/httpx"
	"distribuidora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProviderRequest struct {
	NIT         string `json:"nit"`
	Name        string `json:"name"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	City        string `json:"city"`
}

func (r ProviderRequest) apply(p *models.Provider) error {
	p.NIT = strings.TrimSpace(r.NIT)
	p.Name = strings.TrimSpace(r.Name)
	p.ContactName = strings.TrimSpace(r.ContactName)
	p.Email = strings.ToLower(strings.TrimSpace(r.Email))
	p.Phone = strings.TrimSpace(r.Phone)
	p.Address = strings.TrimSpace(r.Address)
	p.City = strings.TrimSpace(r.City)

	if p.NIT == "" {
		return fiber.NewError(fiber.StatusBadRequest, "El NIT es obligatorio")
	}
	if p.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "El nombre no puede estar vacío")
	}
	return nil
}

func providerError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fiber.NewError(fiber.StatusConflict, "Ya existe un proveedor con ese NIT")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fiber.NewError(fiber.StatusConflict, "El proveedor tiene compras registradas")
	}
	return httpx.DBError(err, "Proveedor no encontrado")
}

// GET /api/providers?q=
func ListProvidersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := searchable(db.WithContext(c.UserContext()).Model(&models.Provider{}), c.Query("q"), "name", "nit")

		providers := make([]models.Provider, 0)
		if err := q.Order("name ASC").Find(&providers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(providers)
	}
}

// GET /api/providers/:id
func GetProviderHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.Provider
		if err := db.WithContext(c.UserContext()).First(&p, id).Error; err != nil {
			return httpx.DBError(err, "Proveedor no encontrado")
		}
		return c.JSON(p)
	}
}

// POST /api/providers
func CreateProviderHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProviderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}
		var p models.Provider
		if err := body.apply(&p); err != nil {
			return err
		}
		if err := db.WithContext(c.UserContext()).Create(&p).Error; err != nil {
			return providerError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "provider",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Proveedor creado: %s (NIT %s)", p.Name, p.NIT),
			After:       p,
		})
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/providers/:id
func UpdateProviderHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body ProviderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}

		var p models.Provider
		if err := db.WithContext(c.UserContext()).First(&p, id).Error; err != nil {
			return httpx.DBError(err, "Proveedor no encontrado")
		}
		before := p
		if err := body.apply(&p); err != nil {
			return err
		}
		if err := db.WithContext(c.UserContext()).Save(&p).Error; err != nil {
			return providerError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "provider",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: "Proveedor actualizado: " + p.Name,
			Before:      before,
			After:       p,
		})
		return c.JSON(p)
	}
}

// DELETE /api/providers/:id
func DeleteProviderHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.Provider
		if err := db.WithContext(c.UserContext()).First(&p, id).Error; err != nil {
			return httpx.DBError(err, "Proveedor no encontrado")
		}
		if err := db.WithContext(c.UserContext()).Delete(&p).Error; err != nil {
			return providerError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "provider",
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: "Proveedor eliminado: " + p.Name,
			Before:      p,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
