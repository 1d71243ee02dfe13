package purchase

import (
	"errors"

	"distribuidora-backend/internal/audit"
	"distribuidora-backend/internal/httpx"
	"distribuidora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type createRequest struct {
	ProviderID      uint        `json:"provider_id"`
	Date            string      `json:"date"`
	ReferenceNumber string      `json:"reference_number"`
	Notes           string      `json:"notes"`
	Items           []ItemInput `json:"items"`
}

type updateRequest struct {
	ProviderID      *uint        `json:"provider_id"`
	Date            *string      `json:"date"`
	ReferenceNumber *string      `json:"reference_number"`
	Notes           *string      `json:"notes"`
	Items           *[]ItemInput `json:"items"`
}

type listQuery struct {
	ProviderID uint   `query:"provider_id"`
	From       string `query:"from"`
	To         string `query:"to"`
	Reference  string `query:"reference_number"`
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Compra no encontrada")
	case errors.Is(err, ErrEmptyItems),
		errors.Is(err, ErrInvalidItem),
		errors.Is(err, ErrProviderNotFound),
		errors.Is(err, ErrProductNotFound):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// GET /api/purchases
func ListPurchasesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q listQuery
		if err := c.QueryParser(&q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Parámetros inválidos")
		}
		from, err := httpx.ParseOptionalDate(q.From, "from")
		if err != nil {
			return err
		}
		to, err := httpx.ParseOptionalDate(q.To, "to")
		if err != nil {
			return err
		}

		list, err := svc.List(c.UserContext(), ListFilter{
			ProviderID: q.ProviderID,
			From:       from,
			To:         to,
			Reference:  q.Reference,
		})
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(list)
	}
}

// GET /api/purchases/:id
func GetPurchaseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		p, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(p)
	}
}

// POST /api/purchases
func CreatePurchaseHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body createRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}
		date, err := httpx.ParseDate(body.Date)
		if err != nil {
			return err
		}

		p, err := svc.Create(c.UserContext(), CreateInput{
			ProviderID:      body.ProviderID,
			Date:            date,
			ReferenceNumber: body.ReferenceNumber,
			Notes:           body.Notes,
			Items:           body.Items,
		})
		if err != nil {
			return toHTTPError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "purchase",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: "Compra registrada: " + p.ReferenceNumber,
			After:       p,
		})
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/purchases/:id
func UpdatePurchaseHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body updateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}

		in := UpdateInput{
			ProviderID:      body.ProviderID,
			ReferenceNumber: body.ReferenceNumber,
			Notes:           body.Notes,
			Items:           body.Items,
		}
		if body.Date != nil {
			d, err := httpx.ParseDate(*body.Date)
			if err != nil {
				return err
			}
			in.Date = &d
		}

		before, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return toHTTPError(err)
		}
		p, err := svc.Update(c.UserContext(), id, in)
		if err != nil {
			return toHTTPError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "purchase",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: "Compra actualizada: " + p.ReferenceNumber,
			Before:      before,
			After:       p,
		})
		return c.JSON(p)
	}
}

// DELETE /api/purchases/:id
func DeletePurchaseHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		before, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return toHTTPError(err)
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return toHTTPError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "purchase",
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: "Compra eliminada: " + before.ReferenceNumber,
			Before:      before,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
