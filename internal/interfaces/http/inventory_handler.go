package http

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	inv "github.com/jhoicas/stockledger-api/internal/domain/inventory"
)

// HeaderIdempotencyKey evita confirmar dos veces el mismo borrador.
const HeaderIdempotencyKey = "Idempotency-Key"

type draftBuilder interface {
	Build(ctx context.Context, in dto.BuildDraftRequest) (*inv.DraftBatch, error)
	Balances(ctx context.Context, warehouseID string, productIDs []string) (*dto.BalanceListResponse, error)
}

type adjustmentService interface {
	Commit(ctx context.Context, actorID string, draft *inv.DraftBatch, idempotencyKey string) (*dto.AdjustmentBatchResponse, error)
	Edit(ctx context.Context, actorID, batchID string, draft *inv.DraftBatch) (*dto.AdjustmentBatchResponse, error)
	Delete(ctx context.Context, actorID, batchID string) (*dto.DeleteAdjustmentResponse, error)
	GetBatch(ctx context.Context, batchID string) (*dto.AdjustmentBatchResponse, error)
	ListBatches(ctx context.Context, warehouseID string, limit, offset int) (*dto.AdjustmentBatchListResponse, error)
}

type movementReader interface {
	Query(ctx context.Context, q dto.MovementQuery) (*dto.MovementListResponse, error)
}

// InventoryHandler saldos, lotes de ajuste e historial de movimientos (protegido).
type InventoryHandler struct {
	drafts      draftBuilder
	adjustments adjustmentService
	movements   movementReader
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(drafts draftBuilder, adjustments adjustmentService, movements movementReader) *InventoryHandler {
	return &InventoryHandler{drafts: drafts, adjustments: adjustments, movements: movements}
}

// Balances godoc
// @Summary      Saldo de productos en una bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  true   "Bodega"
// @Param        product_id    query  string  false  "Producto"
// @Param        product_ids   query  string  false  "Productos separados por coma"
// @Success      200  {object}  dto.BalanceListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/inventory/balances [get]
func (h *InventoryHandler) Balances(c *fiber.Ctx) error {
	warehouseID := c.Query("warehouse_id")
	if warehouseID == "" {
		return writeError(c, domain.NewValidationError("warehouse_id", "requerido"))
	}
	var ids []string
	if id := c.Query("product_id"); id != "" {
		ids = append(ids, id)
	}
	for _, id := range strings.Split(c.Query("product_ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return writeError(c, domain.NewValidationError("product_id", "indique product_id o product_ids"))
	}
	out, err := h.drafts.Balances(c.UserContext(), warehouseID, ids)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// BuildDraft godoc
// @Summary      Construir borrador de lote de ajuste
// @Description  Resuelve saldos actuales y deriva las líneas. El borrador se envía luego a POST /adjustments.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BuildDraftRequest  true  "Bodega, motivo y líneas o conversión"
// @Success      200   {object}  inventory.DraftBatch
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments/drafts [post]
func (h *InventoryHandler) BuildDraft(c *fiber.Ctx) error {
	var in dto.BuildDraftRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validateBody(in); err != nil {
		return writeError(c, err)
	}
	draft, err := h.drafts.Build(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(draft)
}

// Commit godoc
// @Summary      Confirmar lote de ajuste
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string               false  "Clave para reintentos seguros"
// @Param        body             body    inventory.DraftBatch  true   "Borrador devuelto por /drafts"
// @Success      201   {object}  dto.AdjustmentBatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments [post]
func (h *InventoryHandler) Commit(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var draft inv.DraftBatch
	if err := c.BodyParser(&draft); err != nil {
		return badBody(c)
	}
	out, err := h.adjustments.Commit(c.UserContext(), userID, &draft, strings.TrimSpace(c.Get(HeaderIdempotencyKey)))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListAdjustments godoc
// @Summary      Listar lotes de ajuste
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.AdjustmentBatchListResponse
// @Router       /api/inventory/adjustments [get]
func (h *InventoryHandler) ListAdjustments(c *fiber.Ctx) error {
	limit, offset := page(c)
	out, err := h.adjustments.ListBatches(c.UserContext(), c.Query("warehouse_id"), limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetAdjustment godoc
// @Summary      Obtener lote de ajuste con sus líneas
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {object}  dto.AdjustmentBatchResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments/{id} [get]
func (h *InventoryHandler) GetAdjustment(c *fiber.Ctx) error {
	out, err := h.adjustments.GetBatch(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// EditAdjustment godoc
// @Summary      Editar lote de ajuste
// @Description  Reemplaza las líneas del lote por las del borrador construido con batch_id.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID del lote"
// @Param        body  body  inventory.DraftBatch  true  "Borrador"
// @Success      200   {object}  dto.AdjustmentBatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments/{id} [put]
func (h *InventoryHandler) EditAdjustment(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var draft inv.DraftBatch
	if err := c.BodyParser(&draft); err != nil {
		return badBody(c)
	}
	out, err := h.adjustments.Edit(c.UserContext(), userID, c.Params("id"), &draft)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// DeleteAdjustment godoc
// @Summary      Eliminar lote de ajuste
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {object}  dto.DeleteAdjustmentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments/{id} [delete]
func (h *InventoryHandler) DeleteAdjustment(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	out, err := h.adjustments.Delete(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Movements godoc
// @Summary      Historial de movimientos
// @Description  Compras, ventas y ajustes con cantidad con signo, más recientes primero.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  false  "Producto"
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        from          query  string  false  "Desde (YYYY-MM-DD o RFC3339)"
// @Param        to            query  string  false  "Hasta (YYYY-MM-DD o RFC3339)"
// @Param        kind          query  string  false  "purchase | sale | adjustment"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) Movements(c *fiber.Ctx) error {
	q := dto.MovementQuery{
		ProductID:   c.Query("product_id"),
		WarehouseID: c.Query("warehouse_id"),
		Kind:        c.Query("kind"),
	}
	var err error
	if q.From, err = parseDate(c.Query("from"), false); err != nil {
		return writeError(c, domain.NewValidationError("from", err.Error()))
	}
	if q.To, err = parseDate(c.Query("to"), true); err != nil {
		return writeError(c, domain.NewValidationError("to", err.Error()))
	}
	out, err := h.movements.Query(c.UserContext(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// parseDate acepta RFC3339 o YYYY-MM-DD; con endOfDay una fecha simple cubre el día completo.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
