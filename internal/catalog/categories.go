// Package catalog manages categories and products, the public storefront
// listing and the spreadsheet import.
package catalog

import (
	"errors"
	"strings"

	"distribuidora-backend/internal/audit"
	"distribuidora-backend/internal/httpx"
	"distribuidora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func categoryError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fiber.NewError(fiber.StatusConflict, "Ya existe una categoría con ese nombre")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fiber.NewError(fiber.StatusConflict, "La categoría tiene productos asociados")
	}
	return httpx.DBError(err, "Categoría no encontrada")
}

// GET /api/categories, GET /api/store/categories
func ListCategoriesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		categories := make([]models.Category, 0)
		if err := db.WithContext(c.UserContext()).Order("name ASC").Find(&categories).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(categories)
	}
}

// POST /api/categories
func CreateCategoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}
		cat := models.Category{
			Name:        strings.TrimSpace(body.Name),
			Description: strings.TrimSpace(body.Description),
		}
		if cat.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre no puede estar vacío")
		}
		if err := db.WithContext(c.UserContext()).Create(&cat).Error; err != nil {
			return categoryError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "category",
			EntityID:    cat.ID,
			Action:      models.AuditActionCreate,
			Description: "Categoría creada: " + cat.Name,
			After:       cat,
		})
		return c.Status(fiber.StatusCreated).JSON(cat)
	}
}

// PUT /api/categories/:id
func UpdateCategoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}

		var cat models.Category
		if err := db.WithContext(c.UserContext()).First(&cat, id).Error; err != nil {
			return categoryError(err)
		}
		before := cat

		cat.Name = strings.TrimSpace(body.Name)
		cat.Description = strings.TrimSpace(body.Description)
		if cat.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre no puede estar vacío")
		}
		if err := db.WithContext(c.UserContext()).Save(&cat).Error; err != nil {
			return categoryError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "category",
			EntityID:    cat.ID,
			Action:      models.AuditActionUpdate,
			Description: "Categoría actualizada: " + cat.Name,
			Before:      before,
			After:       cat,
		})
		return c.JSON(cat)
	}
}

// DELETE /api/categories/:id
func DeleteCategoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var cat models.Category
		if err := db.WithContext(c.UserContext()).First(&cat, id).Error; err != nil {
			return categoryError(err)
		}
		if err := db.WithContext(c.UserContext()).Delete(&cat).Error; err != nil {
			return categoryError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "category",
			EntityID:    cat.ID,
			Action:      models.AuditActionDelete,
			Description: "Categoría eliminada: " + cat.Name,
			Before:      cat,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
