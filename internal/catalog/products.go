package catalog

import (
	"errors"
	"strings"

	"distribuidora-backend/internal/audit"
	"distribuidora-backend/internal/httpx"
	"distribuidora-backend/internal/models"
	"distribuidora-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductRequest struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CategoryID  *uint           `json:"category_id"`
	Unit        string          `json:"unit"`
	BasePrice   decimal.Decimal `json:"base_price"`
	ImageURL    string          `json:"image_url"`
	ImageKey    string          `json:"image_key"`
}

type productQuery struct {
	Q          string `query:"q"`
	CategoryID uint   `query:"category_id"`
}

func (r ProductRequest) apply(p *models.Product) error {
	p.Code = strings.ToUpper(strings.TrimSpace(r.Code))
	p.Name = strings.TrimSpace(r.Name)
	p.Description = strings.TrimSpace(r.Description)
	p.CategoryID = r.CategoryID
	p.Unit = strings.ToUpper(strings.TrimSpace(r.Unit))
	p.BasePrice = r.BasePrice
	p.ImageURL = strings.TrimSpace(r.ImageURL)
	p.ImageKey = strings.TrimSpace(r.ImageKey)

	switch {
	case p.Code == "":
		return fiber.NewError(fiber.StatusBadRequest, "El código es obligatorio")
	case p.Name == "":
		return fiber.NewError(fiber.StatusBadRequest, "El nombre no puede estar vacío")
	case p.BasePrice.IsNegative():
		return fiber.NewError(fiber.StatusBadRequest, "El precio base no puede ser negativo")
	case !models.InCents(p.BasePrice):
		return fiber.NewError(fiber.StatusBadRequest, "El precio base admite máximo 2 decimales")
	}
	if p.Unit == "" {
		p.Unit = "UND"
	}
	if p.CategoryID != nil && *p.CategoryID == 0 {
		p.CategoryID = nil
	}
	return nil
}

func productError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fiber.NewError(fiber.StatusConflict, "Ya existe un producto con ese código")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fiber.NewError(fiber.StatusConflict, "El producto tiene movimientos o la categoría no existe")
	}
	return httpx.DBError(err, "Producto no encontrado")
}

func listProducts(c *fiber.Ctx, db *gorm.DB) ([]models.Product, error) {
	var q productQuery
	if err := c.QueryParser(&q); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Parámetros inválidos")
	}

	dbq := db.WithContext(c.UserContext()).Preload("Category").Model(&models.Product{})
	if q.CategoryID != 0 {
		dbq = dbq.Where("category_id = ?", q.CategoryID)
	}
	if term := strings.ToLower(strings.TrimSpace(q.Q)); term != "" {
		like := "%" + term + "%"
		dbq = dbq.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", like, like)
	}

	products := make([]models.Product, 0)
	if err := dbq.Order("name ASC").Find(&products).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return products, nil
}

// GET /api/products?q=&category_id=
func ListProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		products, err := listProducts(c, db)
		if err != nil {
			return err
		}
		return c.JSON(products)
	}
}

// GET /api/products/:id
func GetProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.Product
		if err := db.WithContext(c.UserContext()).Preload("Category").First(&p, id).Error; err != nil {
			return productError(err)
		}
		return c.JSON(p)
	}
}

// POST /api/products
func CreateProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}
		var p models.Product
		if err := body.apply(&p); err != nil {
			return err
		}
		if err := db.WithContext(c.UserContext()).Create(&p).Error; err != nil {
			return productError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: "Producto creado: " + p.Code + " " + p.Name,
			After:       p,
		})
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/products/:id
//
// A replaced image is removed from storage after the update commits.
func UpdateProductHandler(db *gorm.DB, store storage.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body ProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}

		var p models.Product
		if err := db.WithContext(c.UserContext()).First(&p, id).Error; err != nil {
			return productError(err)
		}
		before := p
		if err := body.apply(&p); err != nil {
			return err
		}
		if err := db.WithContext(c.UserContext()).Omit("Category").Save(&p).Error; err != nil {
			return productError(err)
		}

		if before.ImageKey != "" && before.ImageKey != p.ImageKey {
			storage.DeleteQuietly(c.UserContext(), store, before.ImageKey)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: "Producto actualizado: " + p.Code + " " + p.Name,
			Before:      before,
			After:       p,
		})
		return c.JSON(p)
	}
}

// DELETE /api/products/:id
func DeleteProductHandler(db *gorm.DB, store storage.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.Product
		if err := db.WithContext(c.UserContext()).First(&p, id).Error; err != nil {
			return productError(err)
		}
		if err := db.WithContext(c.UserContext()).Delete(&p).Error; err != nil {
			return productError(err)
		}

		storage.DeleteQuietly(c.UserContext(), store, p.ImageKey)

		audit.Record(c, db, audit.Entry{
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: "Producto eliminado: " + p.Code + " " + p.Name,
			Before:      p,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
