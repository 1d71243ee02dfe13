package catalog

import (
	"distribuidora-backend/internal/ledger"
	"distribuidora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StoreProduct is the storefront view of a product. The exact stock stays
// internal; customers only see whether it is available.
type StoreProduct struct {
	models.Product
	Available bool `json:"available"`
}

// GET /api/store/products?q=&category_id=
func StoreProductsHandler(db *gorm.DB, ledgerSvc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		products, err := listProducts(c, db)
		if err != nil {
			return err
		}
		levels, err := ledgerSvc.Levels(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		stock := make(map[uint]int64, len(levels))
		for _, l := range levels {
			stock[l.ProductID] = l.Stock
		}

		out := make([]StoreProduct, 0, len(products))
		for _, p := range products {
			out = append(out, StoreProduct{Product: p, Available: stock[p.ID] > 0})
		}
		return c.JSON(out)
	}
}
