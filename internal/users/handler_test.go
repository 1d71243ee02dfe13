package users

import (
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"distribuidora-backend/internal/auth"
	"distribuidora-backend/internal/models"
	"distribuidora-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type env struct {
	app   *fiber.App
	db    *gorm.DB
	admin models.User
	token string
}

func newEnv(t *testing.T) env {
	db := testutil.NewDB(t)
	tokens := auth.NewTokens("users-test-secret-users-test-secret", time.Hour)

	hash, err := auth.HashPassword("admin-password")
	require.NoError(t, err)
	admin := models.User{Name: "Admin", Username: "admin", Email: "admin@distri.co", PasswordHash: hash, Role: models.RoleAdmin}
	testutil.MustCreate(t, db, &admin)
	token, err := tokens.Issue(&admin)
	require.NoError(t, err)

	app := fiber.New()
	g := app.Group("/api/users", auth.JWTMiddleware(tokens), auth.Require(auth.CapUsersManage))
	g.Get("/", ListUsersHandler(db))
	g.Get("/:id", GetUserHandler(db))
	g.Post("/", CreateUserHandler(db))
	g.Put("/:id", UpdateUserHandler(db))
	g.Delete("/:id", DeleteUserHandler(db))

	return env{app: app, db: db, admin: admin, token: token}
}

func (e env) do(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+e.token)
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func TestCreateUser(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, fiber.MethodPost, "/api/users",
		`{"name":"Vendedora Uno","username":"Ventas1","email":"ventas1@distri.co","password":"secreto123","role":"seller"}`)
	require.Equal(t, fiber.StatusCreated, code, body)
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "$2a$")

	var u models.User
	require.NoError(t, e.db.Where("username = ?", "ventas1").First(&u).Error)
	assert.Equal(t, models.RoleSeller, u.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secreto123")))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"duplicate", `{"name":"X","username":"ventas1","email":"otro@distri.co","password":"secreto123","role":"SELLER"}`, fiber.StatusConflict},
		{"bad role", `{"name":"X","username":"x","email":"x@distri.co","password":"secreto123","role":"OWNER"}`, fiber.StatusBadRequest},
		{"short password", `{"name":"X","username":"x","email":"x@distri.co","password":"123","role":"SELLER"}`, fiber.StatusBadRequest},
		{"bad email", `{"name":"X","username":"x","email":"no-es-correo","password":"secreto123","role":"SELLER"}`, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := e.do(t, fiber.MethodPost, "/api/users", tt.body)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestUpdateAndDeleteUser(t *testing.T) {
	e := newEnv(t)
	hash, err := auth.HashPassword("cliente-123")
	require.NoError(t, err)
	customer := models.User{Name: "Cliente", Username: "cliente", Email: "cliente@correo.co", PasswordHash: hash, Role: models.RoleCustomer}
	testutil.MustCreate(t, e.db, &customer)
	path := "/api/users/" + strconv.FormatUint(uint64(customer.ID), 10)

	code, _ := e.do(t, fiber.MethodPut, path, `{"role":"SELLER","password":"nueva-clave-1"}`)
	require.Equal(t, fiber.StatusOK, code)

	var got models.User
	require.NoError(t, e.db.First(&got, customer.ID).Error)
	assert.Equal(t, models.RoleSeller, got.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("nueva-clave-1")))

	code, _ = e.do(t, fiber.MethodPut, "/api/users/1", `{"role":"SELLER"}`)
	assert.Equal(t, fiber.StatusBadRequest, code, "admin cannot demote itself")
	code, _ = e.do(t, fiber.MethodDelete, "/api/users/1", "")
	assert.Equal(t, fiber.StatusBadRequest, code, "admin cannot delete itself")

	code, _ = e.do(t, fiber.MethodDelete, path, "")
	assert.Equal(t, fiber.StatusNoContent, code)
	code, _ = e.do(t, fiber.MethodGet, path, "")
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestListUsers_RoleFilter(t *testing.T) {
	e := newEnv(t)
	code, body := e.do(t, fiber.MethodGet, "/api/users?role=admin", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, body, `"username":"admin"`)

	code, _ = e.do(t, fiber.MethodGet, "/api/users?role=boss", "")
	assert.Equal(t, fiber.StatusBadRequest, code)
}
