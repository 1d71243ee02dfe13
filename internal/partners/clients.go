// Package partners manages the counterparties: clients (sales) and
// providers (purchases).
package partners

import (
	"errors"
	"fmt"
	"strings"

	"distribuidora-backend/internal/audit"
	"distribuidora-backend/internal/httpx"
	"distribuidora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ClientRequest struct {
	DocumentType   models.DocumentType `json:"document_type"`
	DocumentNumber string              `json:"document_number"`
	Name           string              `json:"name"`
	Email          string              `json:"email"`
	Phone          string              `json:"phone"`
	Address        string              `json:"address"`
	City           string              `json:"city"`
}

func (r ClientRequest) apply(c *models.Client) error {
	c.DocumentType = models.DocumentType(strings.ToUpper(strings.TrimSpace(string(r.DocumentType))))
	c.DocumentNumber = strings.TrimSpace(r.DocumentNumber)
	c.Name = strings.TrimSpace(r.Name)
	c.Email = strings.ToLower(strings.TrimSpace(r.Email))
	c.Phone = strings.TrimSpace(r.Phone)
	c.Address = strings.TrimSpace(r.Address)
	c.City = strings.TrimSpace(r.City)

	if !c.DocumentType.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "document_type inválido (CC|NIT|CE)")
	}
	if c.DocumentNumber == "" {
		return fiber.NewError(fiber.StatusBadRequest, "document_number es obligatorio")
	}
	if c.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "El nombre no puede estar vacío")
	}
	return nil
}

// searchable adds a case-insensitive match on the given columns.
func searchable(q *gorm.DB, term string, columns ...string) *gorm.DB {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return q
	}
	like := "%" + term + "%"
	conds := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		conds[i] = "LOWER(" + col + ") LIKE ?"
		args[i] = like
	}
	return q.Where(strings.Join(conds, " OR "), args...)
}

// GET /api/clients?q=
func ListClientsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := searchable(db.WithContext(c.UserContext()).Model(&models.Client{}), c.Query("q"), "name", "document_number")

		clients := make([]models.Client, 0)
		if err := q.Order("name ASC").Find(&clients).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(clients)
	}
}

// GET /api/clients/:id
func GetClientHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var client models.Client
		if err := db.WithContext(c.UserContext()).First(&client, id).Error; err != nil {
			return httpx.DBError(err, "Cliente no encontrado")
		}
		return c.JSON(client)
	}
}

// POST /api/clients
func CreateClientHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ClientRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}
		var client models.Client
		if err := body.apply(&client); err != nil {
			return err
		}

		if err := db.WithContext(c.UserContext()).Create(&client).Error; err != nil {
			return clientError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "client",
			EntityID:    client.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Cliente creado: %s (%s %s)", client.Name, client.DocumentType, client.DocumentNumber),
			After:       client,
		})
		return c.Status(fiber.StatusCreated).JSON(client)
	}
}

// PUT /api/clients/:id
func UpdateClientHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body ClientRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}

		var client models.Client
		if err := db.WithContext(c.UserContext()).First(&client, id).Error; err != nil {
			return httpx.DBError(err, "Cliente no encontrado")
		}
		before := client
		if err := body.apply(&client); err != nil {
			return err
		}
		if err := db.WithContext(c.UserContext()).Save(&client).Error; err != nil {
			return clientError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "client",
			EntityID:    client.ID,
			Action:      models.AuditActionUpdate,
			Description: "Cliente actualizado: " + client.Name,
			Before:      before,
			After:       client,
		})
		return c.JSON(client)
	}
}

// DELETE /api/clients/:id
func DeleteClientHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var client models.Client
		if err := db.WithContext(c.UserContext()).First(&client, id).Error; err != nil {
			return httpx.DBError(err, "Cliente no encontrado")
		}
		if err := db.WithContext(c.UserContext()).Delete(&client).Error; err != nil {
			return clientError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "client",
			EntityID:    client.ID,
			Action:      models.AuditActionDelete,
			Description: "Cliente eliminado: " + client.Name,
			Before:      client,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func clientError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fiber.NewError(fiber.StatusConflict, "Ya existe un cliente con ese número de documento")
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fiber.NewError(fiber.StatusConflict, "El cliente tiene pedidos registrados")
	}
	return httpx.DBError(err, "Cliente no encontrado")
}
