package auth

import (
	"errors"
	"net/mail"
	"strings"

	"distribuidora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const MinPasswordLen = 8

type RegisterRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type SessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// HashPassword is shared with the users package and the seeder.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// POST /api/auth/register
// Storefront sign-up: always creates a CUSTOMER.
func RegisterHandler(db *gorm.DB, tokens *Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Username = strings.TrimSpace(strings.ToLower(body.Username))
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		if body.Name == "" || body.Username == "" || body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nombre, usuario, correo y contraseña son obligatorios")
		}
		if _, err := mail.ParseAddress(body.Email); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Correo inválido")
		}
		if len(body.Password) < MinPasswordLen {
			return fiber.NewError(fiber.StatusBadRequest, "La contraseña debe tener al menos 8 caracteres")
		}

		// Duplicados responden 401, igual que credenciales inválidas.
		var count int64
		if err := db.Model(&models.User{}).
			Where("email = ? OR username = ?", body.Email, body.Username).
			Count(&count).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusUnauthorized, "El correo o usuario ya está registrado")
		}

		hash, err := HashPassword(body.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo procesar la contraseña")
		}

		user := models.User{
			Name:         body.Name,
			Username:     body.Username,
			Email:        body.Email,
			PasswordHash: hash,
			Role:         models.RoleCustomer,
		}
		if err := db.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusUnauthorized, "El correo o usuario ya está registrado")
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		token, err := tokens.Issue(&user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el token")
		}

		return c.Status(fiber.StatusCreated).JSON(SessionResponse{Token: token, User: &user})
	}
}

// POST /api/auth/login
func LoginHandler(db *gorm.DB, tokens *Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		login := strings.TrimSpace(strings.ToLower(body.Email))
		if login == "" {
			login = strings.TrimSpace(strings.ToLower(body.Username))
		}
		if login == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Credenciales inválidas")
		}

		var user models.User
		if err := db.Where("email = ? OR username = ?", login, login).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Credenciales inválidas")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Credenciales inválidas")
		}

		token, err := tokens.Issue(&user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el token")
		}

		return c.JSON(SessionResponse{Token: token, User: &user})
	}
}

// GET /api/auth/me
func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := CurrentUser(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Autenticación requerida")
		}

		var user models.User
		if err := db.First(&user, id.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusUnauthorized, "El usuario ya no existe")
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(user)
	}
}
