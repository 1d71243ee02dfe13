package order

import (
	"errors"
	"fmt"

	"distribuidora-backend/internal/audit"
	"distribuidora-backend/internal/httpx"
	"distribuidora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type createRequest struct {
	ClientID        uint               `json:"client_id"`
	Date            string             `json:"date"`
	ReferenceNumber string             `json:"reference_number"`
	Notes           string             `json:"notes"`
	Status          models.OrderStatus `json:"status"`
	Items           []ItemInput        `json:"items"`
}

type updateRequest struct {
	ClientID        *uint        `json:"client_id"`
	Date            *string      `json:"date"`
	ReferenceNumber *string      `json:"reference_number"`
	Notes           *string      `json:"notes"`
	Items           *[]ItemInput `json:"items"`
}

type statusRequest struct {
	Status models.OrderStatus `json:"status"`
}

type listQuery struct {
	ClientID uint   `query:"client_id"`
	Status   string `query:"status"`
	From     string `query:"from"`
	To       string `query:"to"`
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Pedido no encontrado")
	case errors.Is(err, ErrEmptyItems),
		errors.Is(err, ErrInvalidItem),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrClientNotFound),
		errors.Is(err, ErrProductNotFound):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// GET /api/orders?client_id=&status=&from=&to=
func ListOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q listQuery
		if err := c.QueryParser(&q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Parámetros inválidos")
		}
		status := models.OrderStatus(q.Status)
		if status != "" && !status.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "status inválido")
		}
		from, err := httpx.ParseOptionalDate(q.From, "from")
		if err != nil {
			return err
		}
		to, err := httpx.ParseOptionalDate(q.To, "to")
		if err != nil {
			return err
		}

		orders, err := svc.List(c.UserContext(), ListFilter{ClientID: q.ClientID, Status: status, From: from, To: to})
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(orders)
	}
}

// GET /api/orders/:id
func GetOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		o, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(o)
	}
}

// POST /api/orders
func CreateOrderHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body createRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}
		date, err := httpx.ParseDate(body.Date)
		if err != nil {
			return err
		}

		o, err := svc.Create(c.UserContext(), CreateInput{
			ClientID:        body.ClientID,
			Date:            date,
			ReferenceNumber: body.ReferenceNumber,
			Notes:           body.Notes,
			Status:          body.Status,
			Items:           body.Items,
		})
		if err != nil {
			return toHTTPError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "order",
			EntityID:    o.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Pedido registrado: %s (total %s)", o.ReferenceNumber, o.Total.StringFixed(2)),
			After:       o,
		})
		return c.Status(fiber.StatusCreated).JSON(o)
	}
}

// PUT /api/orders/:id
func UpdateOrderHandler(svc *Service, db *gorm.DB) fiber.Handler {
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
			ClientID:        body.ClientID,
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
		o, err := svc.Update(c.UserContext(), id, in)
		if err != nil {
			return toHTTPError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "order",
			EntityID:    o.ID,
			Action:      models.AuditActionUpdate,
			Description: "Pedido actualizado: " + o.ReferenceNumber,
			Before:      before,
			After:       o,
		})
		return c.JSON(o)
	}
}

// PATCH /api/orders/:id/status
func UpdateOrderStatusHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body statusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}

		before, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return toHTTPError(err)
		}
		o, err := svc.UpdateStatus(c.UserContext(), id, body.Status)
		if err != nil {
			return toHTTPError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "order",
			EntityID:    o.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Estado del pedido %d: %s -> %s", o.ID, before.Status, o.Status),
			Before:      fiber.Map{"status": before.Status},
			After:       fiber.Map{"status": o.Status},
		})
		return c.JSON(o)
	}
}

// DELETE /api/orders/:id
func DeleteOrderHandler(svc *Service, db *gorm.DB) fiber.Handler {
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
			EntityType:  "order",
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: "Pedido eliminado: " + before.ReferenceNumber,
			Before:      before,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
