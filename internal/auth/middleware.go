package auth

import (
	"strings"

	"distribuidora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUsernameKey = "username"
	CtxUserRoleKey = "user_role"
)

// Identity is the authenticated subject of a request.
type Identity struct {
	UserID   uint
	Username string
	Role     models.UserRole
}

func JWTMiddleware(tokens *Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Falta el header Authorization")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "El formato debe ser 'Bearer <token>'")
		}

		claims, err := tokens.Parse(parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Token inválido o expirado")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUsernameKey, claims.Username)
		c.Locals(CtxUserRoleKey, claims.Role)

		return c.Next()
	}
}

// CurrentUser returns the identity stored by JWTMiddleware.
func CurrentUser(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return Identity{}, false
	}
	username, _ := c.Locals(CtxUsernameKey).(string)
	role, _ := c.Locals(CtxUserRoleKey).(models.UserRole)
	return Identity{UserID: id, Username: username, Role: role}, true
}
