// Package users is the admin side of account management. Passwords are only
// ever stored as bcrypt hashes and never serialized.
package users

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"distribuidora-backend/internal/audit"
	"distribuidora-backend/internal/auth"
	"distribuidora-backend/internal/httpx"
	"distribuidora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Name     string          `json:"name"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
}

type UpdateUserRequest struct {
	Name     *string          `json:"name"`
	Email    *string          `json:"email"`
	Password *string          `json:"password"`
	Role     *models.UserRole `json:"role"`
}

func userError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fiber.NewError(fiber.StatusConflict, "El correo o usuario ya está registrado")
	}
	return httpx.DBError(err, "Usuario no encontrado")
}

func checkEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Correo inválido")
	}
	return nil
}

func checkPassword(pw string) error {
	if len(pw) < auth.MinPasswordLen {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("La contraseña debe tener al menos %d caracteres", auth.MinPasswordLen))
	}
	return nil
}

func parseRole(r models.UserRole) (models.UserRole, error) {
	role := models.UserRole(strings.ToUpper(strings.TrimSpace(string(r))))
	if !role.Valid() {
		return "", fiber.NewError(fiber.StatusBadRequest, "role inválido (ADMIN|SELLER|CUSTOMER)")
	}
	return role, nil
}

// GET /api/users?role=
func ListUsersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.WithContext(c.UserContext()).Model(&models.User{})
		if r := c.Query("role"); r != "" {
			role, err := parseRole(models.UserRole(r))
			if err != nil {
				return err
			}
			q = q.Where("role = ?", role)
		}

		users := make([]models.User, 0)
		if err := q.Order("name ASC").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(users)
	}
}

// GET /api/users/:id
func GetUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var u models.User
		if err := db.WithContext(c.UserContext()).First(&u, id).Error; err != nil {
			return userError(err)
		}
		return c.JSON(u)
	}
}

// POST /api/users
func CreateUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}

		u := models.User{
			Name:     strings.TrimSpace(body.Name),
			Username: strings.ToLower(strings.TrimSpace(body.Username)),
			Email:    strings.ToLower(strings.TrimSpace(body.Email)),
		}
		if u.Name == "" || u.Username == "" || u.Email == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nombre, usuario y correo son obligatorios")
		}
		if err := checkEmail(u.Email); err != nil {
			return err
		}
		if err := checkPassword(body.Password); err != nil {
			return err
		}
		role, err := parseRole(body.Role)
		if err != nil {
			return err
		}
		u.Role = role

		if u.PasswordHash, err = auth.HashPassword(body.Password); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo procesar la contraseña")
		}
		if err := db.WithContext(c.UserContext()).Create(&u).Error; err != nil {
			return userError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "user",
			EntityID:    u.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Usuario creado: %s (%s)", u.Username, u.Role),
			After:       u,
		})
		return c.Status(fiber.StatusCreated).JSON(u)
	}
}

// PUT /api/users/:id
func UpdateUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de solicitud inválido")
		}

		var u models.User
		if err := db.WithContext(c.UserContext()).First(&u, id).Error; err != nil {
			return userError(err)
		}
		before := u

		if body.Name != nil {
			if u.Name = strings.TrimSpace(*body.Name); u.Name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "El nombre no puede estar vacío")
			}
		}
		if body.Email != nil {
			u.Email = strings.ToLower(strings.TrimSpace(*body.Email))
			if err := checkEmail(u.Email); err != nil {
				return err
			}
		}
		if body.Role != nil {
			role, err := parseRole(*body.Role)
			if err != nil {
				return err
			}
			if me, ok := auth.CurrentUser(c); ok && me.UserID == u.ID && role != models.RoleAdmin {
				return fiber.NewError(fiber.StatusBadRequest, "No puede quitarse a sí mismo el rol ADMIN")
			}
			u.Role = role
		}
		if body.Password != nil {
			if err := checkPassword(*body.Password); err != nil {
				return err
			}
			if u.PasswordHash, err = auth.HashPassword(*body.Password); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "No se pudo procesar la contraseña")
			}
		}

		if err := db.WithContext(c.UserContext()).Save(&u).Error; err != nil {
			return userError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "user",
			EntityID:    u.ID,
			Action:      models.AuditActionUpdate,
			Description: "Usuario actualizado: " + u.Username,
			Before:      before,
			After:       u,
		})
		return c.JSON(u)
	}
}

// DELETE /api/users/:id
func DeleteUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		if me, ok := auth.CurrentUser(c); ok && me.UserID == id {
			return fiber.NewError(fiber.StatusBadRequest, "No puede eliminar su propio usuario")
		}

		var u models.User
		if err := db.WithContext(c.UserContext()).First(&u, id).Error; err != nil {
			return userError(err)
		}
		if err := db.WithContext(c.UserContext()).Delete(&u).Error; err != nil {
			return userError(err)
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "user",
			EntityID:    u.ID,
			Action:      models.AuditActionDelete,
			Description: "Usuario eliminado: " + u.Username,
			Before:      u,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
