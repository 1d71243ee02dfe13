package auth

import (
	"distribuidora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Capability names something a role may do. Routes declare the capability
// they need with Require instead of checking roles inside handlers.
type Capability string

const (
	CapCatalogManage   Capability = "catalog:manage"
	CapPartnersRead    Capability = "partners:read"
	CapPartnersManage  Capability = "partners:manage"
	CapInventoryRead   Capability = "inventory:read"
	CapPurchasesManage Capability = "purchases:manage"
	CapOrdersWrite     Capability = "orders:write"
	CapOrdersManage    Capability = "orders:manage"
	CapCashFlowManage  Capability = "cashflow:manage"
	CapUsersManage     Capability = "users:manage"
	CapFilesManage     Capability = "files:manage"
	CapAuditRead       Capability = "audit:read"
	CapDashboardRead   Capability = "dashboard:read"
)

var policy = map[Capability][]models.UserRole{
	CapCatalogManage:   {models.RoleAdmin},
	CapPartnersRead:    {models.RoleAdmin, models.RoleSeller},
	CapPartnersManage:  {models.RoleAdmin, models.RoleSeller},
	CapInventoryRead:   {models.RoleAdmin, models.RoleSeller},
	CapPurchasesManage: {models.RoleAdmin},
	CapOrdersWrite:     {models.RoleAdmin, models.RoleSeller},
	CapOrdersManage:    {models.RoleAdmin},
	CapCashFlowManage:  {models.RoleAdmin},
	CapUsersManage:     {models.RoleAdmin},
	CapFilesManage:     {models.RoleAdmin},
	CapAuditRead:       {models.RoleAdmin},
	CapDashboardRead:   {models.RoleAdmin, models.RoleSeller},
}

// Allows reports whether role holds capability. Unknown capabilities are
// denied.
func Allows(role models.UserRole, capability Capability) bool {
	for _, r := range policy[capability] {
		if r == role {
			return true
		}
	}
	return false
}

// Require must run after JWTMiddleware.
func Require(capability Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := CurrentUser(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Autenticación requerida")
		}
		if !Allows(id.Role, capability) {
			return fiber.NewError(fiber.StatusForbidden, "No tiene permisos para esta operación")
		}
		return c.Next()
	}
}
