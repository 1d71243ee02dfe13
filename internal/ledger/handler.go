package ledger

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"distribuidora-backend/internal/httpx"

	"github.com/gofiber/fiber/v2"
)

// GET /api/inventory
func InventoryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		levels, err := svc.Levels(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(levels)
	}
}

// GET /api/inventory/low-stock?threshold=10
func LowStockHandler(svc *Service, defaultThreshold int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		threshold := defaultThreshold
		if v := c.Query("threshold"); v != "" {
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil || parsed < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "threshold inválido")
			}
			threshold = parsed
		}

		levels, err := svc.LowStock(c.UserContext(), threshold)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{
			"threshold": threshold,
			"items":     levels,
		})
	}
}

// GET /api/inventory/export
func ExportInventoryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		levels, err := svc.Levels(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		var buf bytes.Buffer
		if err := WriteInventoryXLSX(&buf, levels); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el archivo: "+err.Error())
		}

		filename := fmt.Sprintf("inventario_%s.xlsx", time.Now().Format("20060102_150405"))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
		return c.Send(buf.Bytes())
	}
}

// GET /api/products/:id/stock
func ProductStockHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		stock, err := svc.Stock(c.UserContext(), id)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"product_id": id, "stock": stock})
	}
}

// GET /api/products/:id/movements
func ProductMovementsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		movements, err := svc.Movements(c.UserContext(), id)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		stock, err := svc.Stock(c.UserContext(), id)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{
			"product_id": id,
			"stock":      stock,
			"movements":  movements,
		})
	}
}
