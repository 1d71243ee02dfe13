// Package server wires every handler package into one Fiber app.
package server

import (
	"log/slog"
	"strings"

	"distribuidora-backend/internal/audit"
	"distribuidora-backend/internal/auth"
	"distribuidora-backend/internal/cashflow"
	"distribuidora-backend/internal/catalog"
	"distribuidora-backend/internal/config"
	"distribuidora-backend/internal/dashboard"
	"distribuidora-backend/internal/httpx"
	"distribuidora-backend/internal/ledger"
	"distribuidora-backend/internal/logger"
	"distribuidora-backend/internal/order"
	"distribuidora-backend/internal/partners"
	"distribuidora-backend/internal/purchase"
	"distribuidora-backend/internal/storage"
	"distribuidora-backend/internal/users"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Store  storage.Store
	Logger *slog.Logger
}

func New(d Deps) *fiber.App {
	cfg, db := d.Config, d.DB
	maxUpload := int64(cfg.MaxUploadMB) << 20

	app := fiber.New(fiber.Config{
		AppName:      "distribuidora-api",
		ErrorHandler: httpx.ErrorHandler(d.Logger),
		BodyLimit:    int(maxUpload) + 1<<20,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.Middleware(d.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOriginList(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	if cfg.StorageDriver == "local" {
		app.Static("/uploads", cfg.UploadDir)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiration)
	ledgerSvc := ledger.NewService(db)
	purchaseSvc := purchase.NewService(db)
	orderSvc := order.NewService(db)
	dashboardSvc := dashboard.NewService(db, ledgerSvc, cfg.LowStockThreshold)

	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Público
	api.Post("/auth/register", auth.RegisterHandler(db, tokens))
	api.Post("/auth/login", auth.LoginHandler(db, tokens))
	api.Get("/store/products", catalog.StoreProductsHandler(db, ledgerSvc))
	api.Get("/store/categories", catalog.ListCategoriesHandler(db))

	jwt := auth.JWTMiddleware(tokens)
	// Cada recurso protegido monta el JWT sobre su propio prefijo; una ruta
	// desconocida bajo /api responde 404 y no 401.
	secured := func(prefix string, handlers ...fiber.Handler) fiber.Router {
		return api.Group(prefix, append([]fiber.Handler{jwt}, handlers...)...)
	}

	api.Get("/auth/me", jwt, auth.MeHandler(db))

	// Catálogo
	cat := secured("/categories")
	cat.Get("/", catalog.ListCategoriesHandler(db))
	cat.Post("/", auth.Require(auth.CapCatalogManage), catalog.CreateCategoryHandler(db))
	cat.Put("/:id", auth.Require(auth.CapCatalogManage), catalog.UpdateCategoryHandler(db))
	cat.Delete("/:id", auth.Require(auth.CapCatalogManage), catalog.DeleteCategoryHandler(db))

	prod := secured("/products")
	prod.Post("/import", auth.Require(auth.CapCatalogManage), catalog.ImportProductsHandler(db))
	prod.Get("/", auth.Require(auth.CapInventoryRead), catalog.ListProductsHandler(db))
	prod.Get("/:id", auth.Require(auth.CapInventoryRead), catalog.GetProductHandler(db))
	prod.Get("/:id/stock", auth.Require(auth.CapInventoryRead), ledger.ProductStockHandler(ledgerSvc))
	prod.Get("/:id/movements", auth.Require(auth.CapInventoryRead), ledger.ProductMovementsHandler(ledgerSvc))
	prod.Post("/", auth.Require(auth.CapCatalogManage), catalog.CreateProductHandler(db))
	prod.Post("/:id/image", auth.Require(auth.CapCatalogManage), catalog.UploadProductImageHandler(db, d.Store, maxUpload))
	prod.Put("/:id", auth.Require(auth.CapCatalogManage), catalog.UpdateProductHandler(db, d.Store))
	prod.Delete("/:id", auth.Require(auth.CapCatalogManage), catalog.DeleteProductHandler(db, d.Store))

	// Inventario
	inv := secured("/inventory", auth.Require(auth.CapInventoryRead))
	inv.Get("/", ledger.InventoryHandler(ledgerSvc))
	inv.Get("/low-stock", ledger.LowStockHandler(ledgerSvc, cfg.LowStockThreshold))
	inv.Get("/export", ledger.ExportInventoryHandler(ledgerSvc))

	// Clientes y proveedores
	cli := secured("/clients")
	cli.Get("/", auth.Require(auth.CapPartnersRead), partners.ListClientsHandler(db))
	cli.Get("/:id", auth.Require(auth.CapPartnersRead), partners.GetClientHandler(db))
	cli.Post("/", auth.Require(auth.CapPartnersManage), partners.CreateClientHandler(db))
	cli.Put("/:id", auth.Require(auth.CapPartnersManage), partners.UpdateClientHandler(db))
	cli.Delete("/:id", auth.Require(auth.CapPartnersManage), partners.DeleteClientHandler(db))

	prov := secured("/providers")
	prov.Get("/", auth.Require(auth.CapPartnersRead), partners.ListProvidersHandler(db))
	prov.Get("/:id", auth.Require(auth.CapPartnersRead), partners.GetProviderHandler(db))
	prov.Post("/", auth.Require(auth.CapPartnersManage), partners.CreateProviderHandler(db))
	prov.Put("/:id", auth.Require(auth.CapPartnersManage), partners.UpdateProviderHandler(db))
	prov.Delete("/:id", auth.Require(auth.CapPartnersManage), partners.DeleteProviderHandler(db))

	// Compras
	pur := secured("/purchases", auth.Require(auth.CapPurchasesManage))
	pur.Get("/", purchase.ListPurchasesHandler(purchaseSvc))
	pur.Get("/:id", purchase.GetPurchaseHandler(purchaseSvc))
	pur.Post("/", purchase.CreatePurchaseHandler(purchaseSvc, db))
	pur.Put("/:id", purchase.UpdatePurchaseHandler(purchaseSvc, db))
	pur.Delete("/:id", purchase.DeletePurchaseHandler(purchaseSvc, db))

	// Pedidos
	ord := secured("/orders")
	ord.Get("/", auth.Require(auth.CapOrdersWrite), order.ListOrdersHandler(orderSvc))
	ord.Get("/:id", auth.Require(auth.CapOrdersWrite), order.GetOrderHandler(orderSvc))
	ord.Post("/", auth.Require(auth.CapOrdersWrite), order.CreateOrderHandler(orderSvc, db))
	ord.Put("/:id", auth.Require(auth.CapOrdersManage), order.UpdateOrderHandler(orderSvc, db))
	ord.Patch("/:id/status", auth.Require(auth.CapOrdersManage), order.UpdateOrderStatusHandler(orderSvc, db))
	ord.Delete("/:id", auth.Require(auth.CapOrdersManage), order.DeleteOrderHandler(orderSvc, db))

	// Flujo de caja
	cf := secured("/cash-flow", auth.Require(auth.CapCashFlowManage))
	cf.Get("/summary", cashflow.SummaryHandler(ledgerSvc))
	cf.Get("/", cashflow.ListHandler(db))
	cf.Get("/:id", cashflow.GetHandler(db))
	cf.Post("/", cashflow.CreateHandler(db))
	cf.Put("/:id", cashflow.UpdateHandler(db))
	cf.Delete("/:id", cashflow.DeleteHandler(db))

	// Archivos
	files := secured("/files", auth.Require(auth.CapFilesManage))
	files.Post("/", storage.UploadHandler(db, d.Store, maxUpload))
	files.Delete("/:id", storage.DeleteFileHandler(db, d.Store))

	// Administración
	usr := secured("/users", auth.Require(auth.CapUsersManage))
	usr.Get("/", users.ListUsersHandler(db))
	usr.Get("/:id", users.GetUserHandler(db))
	usr.Post("/", users.CreateUserHandler(db))
	usr.Put("/:id", users.UpdateUserHandler(db))
	usr.Delete("/:id", users.DeleteUserHandler(db))

	secured("/audit-logs", auth.Require(auth.CapAuditRead)).Get("/", audit.ListAuditLogsHandler(db))

	dash := secured("/dashboard", auth.Require(auth.CapDashboardRead))
	dash.Get("/sales-chart", dashboard.SalesChartHandler(dashboardSvc))
	dash.Get("/overview", dashboard.OverviewHandler(dashboardSvc))

	return app
}
