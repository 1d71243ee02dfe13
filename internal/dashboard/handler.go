package dashboard

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

const maxBuckets = 366

// GET /api/dashboard/sales-chart?period=daily|weekly|monthly&count=N
func SalesChartHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := Period(c.Query("period", string(Daily)))
		if !period.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "period inválido (daily|weekly|monthly)")
		}

		count := period.DefaultCount()
		if v := c.Query("count"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > maxBuckets {
				return fiber.NewError(fiber.StatusBadRequest, "count inválido")
			}
			count = n
		}

		chart, err := svc.SalesChart(c.UserContext(), period, count, time.Now().UTC())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Error al calcular el gráfico: "+err.Error())
		}
		return c.JSON(chart)
	}
}

// GET /api/dashboard/overview
func OverviewHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ov, err := svc.Overview(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(ov)
	}
}
