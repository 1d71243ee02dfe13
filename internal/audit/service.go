package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"distribuidora-backend/internal/auth"
	"distribuidora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Entry struct {
	UserID      uint
	Username    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func encode(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func Write(db *gorm.DB, e Entry) error {
	log := models.AuditLog{
		UserID:      e.UserID,
		Username:    e.Username,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Description: e.Description,
		BeforeData:  encode(e.Before),
		AfterData:   encode(e.After),
	}
	if err := db.Create(&log).Error; err != nil {
		return fmt.Errorf("audit log: %w", err)
	}
	return nil
}

// Record writes an entry for the request's user after a successful change.
// Failures are logged only; the change itself already committed.
func Record(c *fiber.Ctx, db *gorm.DB, e Entry) {
	if id, ok := auth.CurrentUser(c); ok {
		e.UserID = id.UserID
		e.Username = id.Username
	}
	if err := Write(db.WithContext(c.UserContext()), e); err != nil {
		slog.Warn("audit log could not be written",
			slog.String("entity_type", e.EntityType),
			slog.Uint64("entity_id", uint64(e.EntityID)),
			slog.String("error", err.Error()))
	}
}
