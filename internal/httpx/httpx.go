// Package httpx holds Fiber helpers shared by every handler package.
package httpx

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const DateLayout = "2006-01-02"

// ErrorHandler renders every error as {"error": msg}. Unexpected errors keep
// their message: the API is only consumed by the internal dashboard.
func ErrorHandler(l *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var e *fiber.Error
		if errors.As(err, &e) {
			return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
		}
		l.Error("unexpected error", slog.String("path", c.Path()), slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

// ParamID reads a positive numeric route parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, name+" inválido")
	}
	return uint(v), nil
}

// ParseDate parses YYYY-MM-DD; empty means today at 00:00.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "Formato de fecha inválido, debe ser 'YYYY-MM-DD'")
	}
	return d, nil
}

// ParseOptionalDate returns nil for an empty string.
func ParseOptionalDate(s, field string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, field+": formato de fecha inválido")
	}
	return &d, nil
}

// DBError maps persistence errors to HTTP errors. notFound is the message
// used for gorm.ErrRecordNotFound.
func DBError(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.NewError(fiber.StatusNotFound, notFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fiber.NewError(fiber.StatusConflict, "Ya existe un registro con esos datos")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fiber.NewError(fiber.StatusConflict, "El registro está referenciado por otros datos")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
