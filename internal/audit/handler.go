package audit

import (
	"distribuidora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ListFilter struct {
	EntityType string `query:"entity_type"`
	EntityID   uint   `query:"entity_id"`
	UserID     uint   `query:"user_id"`
	Limit      int    `query:"limit"`
}

// GET /api/audit-logs?entity_type=purchase&entity_id=1&user_id=2
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var f ListFilter
		if err := c.QueryParser(&f); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Parámetros inválidos")
		}
		if f.Limit <= 0 || f.Limit > 500 {
			f.Limit = 100
		}

		dbq := db.WithContext(c.UserContext()).Model(&models.AuditLog{})
		if f.EntityType != "" {
			dbq = dbq.Where("entity_type = ?", f.EntityType)
		}
		if f.EntityID != 0 {
			dbq = dbq.Where("entity_id = ?", f.EntityID)
		}
		if f.UserID != 0 {
			dbq = dbq.Where("user_id = ?", f.UserID)
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC, id DESC").Limit(f.Limit).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(logs)
	}
}
