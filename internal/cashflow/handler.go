// Package cashflow exposes CRUD over income and expense entries plus the
// period summary computed by the ledger.
package cashflow

import (
	"fmt"
	"strings"
	"time"

	"distribuidora-backend/internal/audit"
	"distribuidora-backend/internal/httpx"
	"distribuidora-backend/internal/ledger"
	"distribuidora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type entryRequest struct {
	Date          string               `json:"date"`
	Type          models.CashFlowType  `json:"type"`
	Counterparty  string               `json:"counterparty"`
	Concept       string               `json:"concept"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	Amount        decimal.Decimal      `json:"amount"`
}

type updateRequest struct {
	Date          *string               `json:"date"`
	Type          *models.CashFlowType  `json:"type"`
	Counterparty  *string               `json:"counterparty"`
	Concept       *string               `json:"concept"`
	PaymentMethod *models.PaymentMethod `json:"payment_method"`
	Amount        *decimal.Decimal      `json:"amount"`
}

// Filter narrows the entry list. Zero values match everything.
type Filter struct {
	Type models.CashFlowType
	From *time.Time
	To   *time.Time
}

func parseFilter(c *fiber.Ctx) (Filter, error) {
	var f Filter
	if v := strings.ToUpper(c.Query("type")); v != "" {
		f.Type = models.CashFlowType(v)
		if !f.Type.Valid() {
			return f, fiber.NewError(fiber.StatusBadRequest, "type inválido (INCOME|EXPENSE)")
		}
	}
	var err error
	if f.From, err = httpx.ParseOptionalDate(c.Query("from"), "from"); err != nil {
		return f, err
	}
	if f.To, err = httpx.ParseOptionalDate(c.Query("to"), "to"); err != nil {
		return f, err
	}
	return f, nil
}

func validate(e *models.CashFlow) error {
	if !e.Type.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "type inválido (INCOME|EXPENSE)")
	}
	if !e.PaymentMethod.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "payment_method inválido (CASH|TRANSFER|CARD)")
	}
	if strings.TrimSpace(e.Counterparty) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "counterparty es obligatorio")
	}
	if !e.Amount.IsPositive() {
		return fiber.NewError(fiber.StatusBadRequest, "El monto debe ser mayor a 0")
	}
	if !models.InCents(e.Amount) {
		return fiber.NewError(fiber.StatusBadRequest, "El monto admite máximo 2 decimales")
	}
	return nil
}

// GET /api/cash-flow?type=&from=&to=
func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := parseFilter(c)
		if err != nil {
			return err
		}

		q := db.WithContext(c.UserContext()).Model(&models.CashFlow{})
		if f.Type != "" {
			q = q.Where("type = ?", f.Type)
		}
		if f.From != nil {
			q = q.Where("date >= ?", *f.From)
		}
		if f.To != nil {
			q = q.Where("date <= ?", *f.To)
		}

		entries := make([]models.CashFlow, 0)
		if err := q.Order("date DESC, id DESC").Find(&entries).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(entries)
	}
}

// GET /api/cash-flow/:id
func GetHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var e models.CashFlow
		if err := db.WithContext(c.UserContext()).First(&e, id).Error; err != nil {
			return httpx.DBError(err, "Movimiento no encontrado")
		}
		return c.JSON(e)
	}
}

// POST /api/cash-flow
func CreateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body entryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}
		date, err := httpx.ParseDate(body.Date)
		if err != nil {
			return err
		}

		e := models.CashFlow{
			Date:          date,
			Type:          models.CashFlowType(strings.ToUpper(string(body.Type))),
			Counterparty:  strings.TrimSpace(body.Counterparty),
			Concept:       strings.TrimSpace(body.Concept),
			PaymentMethod: models.PaymentMethod(strings.ToUpper(string(body.PaymentMethod))),
			Amount:        body.Amount,
		}
		if err := validate(&e); err != nil {
			return err
		}

		if err := db.WithContext(c.UserContext()).Create(&e).Error; err != nil {
			return httpx.DBError(err, "")
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "cash_flow",
			EntityID:    e.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%s registrado: %s - %s", e.Type, e.Counterparty, e.Amount.StringFixed(2)),
			After:       e,
		})
		return c.Status(fiber.StatusCreated).JSON(e)
	}
}

// PUT /api/cash-flow/:id
func UpdateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body updateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}

		var e models.CashFlow
		if err := db.WithContext(c.UserContext()).First(&e, id).Error; err != nil {
			return httpx.DBError(err, "Movimiento no encontrado")
		}
		before := e

		if body.Date != nil {
			if strings.TrimSpace(*body.Date) == "" {
				return fiber.NewError(fiber.StatusBadRequest, "La fecha no puede estar vacía")
			}
			d, err := httpx.ParseDate(*body.Date)
			if err != nil {
				return err
			}
			e.Date = d
		}
		if body.Type != nil {
			e.Type = models.CashFlowType(strings.ToUpper(string(*body.Type)))
		}
		if body.Counterparty != nil {
			e.Counterparty = strings.TrimSpace(*body.Counterparty)
		}
		if body.Concept != nil {
			e.Concept = strings.TrimSpace(*body.Concept)
		}
		if body.PaymentMethod != nil {
			e.PaymentMethod = models.PaymentMethod(strings.ToUpper(string(*body.PaymentMethod)))
		}
		if body.Amount != nil {
			e.Amount = *body.Amount
		}
		if err := validate(&e); err != nil {
			return err
		}

		if err := db.WithContext(c.UserContext()).Save(&e).Error; err != nil {
			return httpx.DBError(err, "Movimiento no encontrado")
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "cash_flow",
			EntityID:    e.ID,
			Action:      models.AuditActionUpdate,
			Description: "Movimiento de caja actualizado: " + e.Counterparty,
			Before:      before,
			After:       e,
		})
		return c.JSON(e)
	}
}

// DELETE /api/cash-flow/:id
func DeleteHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var e models.CashFlow
		if err := db.WithContext(c.UserContext()).First(&e, id).Error; err != nil {
			return httpx.DBError(err, "Movimiento no encontrado")
		}
		if err := db.WithContext(c.UserContext()).Delete(&e).Error; err != nil {
			return httpx.DBError(err, "Movimiento no encontrado")
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "cash_flow",
			EntityID:    e.ID,
			Action:      models.AuditActionDelete,
			Description: "Movimiento de caja eliminado: " + e.Counterparty,
			Before:      e,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/cash-flow/summary?from=&to=
func SummaryHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := parseFilter(c)
		if err != nil {
			return err
		}
		sum, err := svc.CashFlowSummary(c.UserContext(), ledger.CashFlowFilter{From: f.From, To: f.To})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(sum)
	}
}
