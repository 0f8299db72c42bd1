package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/stockledger-api/internal/application/usecase"
)

// Roles con permiso para mutar el libro de ajustes.
const (
	RoleAdmin     = "admin"
	RoleBodeguero = "bodeguero"
)

// RouterDeps agrupa los casos de uso que expone la API.
type RouterDeps struct {
	Drafts      draftBuilder
	Adjustments adjustmentService
	Movements   movementReader
	Audit       auditQuerier
	WarehouseUC *usecase.WarehouseUseCase
	ProductUC   *usecase.ProductUseCase
	CustomerUC  *usecase.CustomerUseCase
	Metrics     http.Handler // nil: sin /metrics
	ServiceName string
	JWTSecret   string
}

// Router registra /health, /metrics y las rutas /api.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	api := app.Group("/api")
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	writer := RequireRole(RoleAdmin, RoleBodeguero)

	inventory := protected.Group("/inventory")
	invH := NewInventoryHandler(deps.Drafts, deps.Adjustments, deps.Movements)
	inventory.Get("/balances", invH.Balances)
	inventory.Get("/movements", invH.Movements)
	inventory.Post("/adjustments/drafts", writer, invH.BuildDraft)
	inventory.Post("/adjustments", writer, invH.Commit)
	inventory.Get("/adjustments", invH.ListAdjustments)
	inventory.Get("/adjustments/:id", invH.GetAdjustment)
	inventory.Put("/adjustments/:id", writer, invH.EditAdjustment)
	inventory.Delete("/adjustments/:id", writer, invH.DeleteAdjustment)

	auditH := NewAuditHandler(deps.Audit)
	protected.Get("/audit/:resource_type/:resource_id", auditH.List)

	if deps.WarehouseUC != nil {
		h := NewWarehouseHandler(deps.WarehouseUC)
		warehouses := protected.Group("/warehouses")
		warehouses.Post("/", writer, h.Create)
		warehouses.Get("/", h.List)
		warehouses.Get("/:id", h.GetByID)
		warehouses.Put("/:id", writer, h.Update)
		warehouses.Delete("/:id", RequireRole(RoleAdmin), h.Delete)
	}
	if deps.ProductUC != nil {
		h := NewProductHandler(deps.ProductUC)
		products := protected.Group("/products")
		products.Post("/", writer, h.Create)
		products.Get("/", h.List)
		products.Get("/:id", h.GetByID)
		products.Put("/:id", writer, h.Update)
		products.Delete("/:id", RequireRole(RoleAdmin), h.Delete)
	}
	if deps.CustomerUC != nil {
		h := NewCustomerHandler(deps.CustomerUC)
		customers := protected.Group("/customers")
		customers.Post("/", h.Create)
		customers.Get("/", h.List)
		customers.Get("/:id", h.GetByID)
		customers.Put("/:id", h.Update)
		customers.Delete("/:id", RequireRole(RoleAdmin), h.Delete)
	}
}
