package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stockledger-api/internal/application/dto"
)

type auditQuerier interface {
	Query(ctx context.Context, resourceType, resourceID string, limit, offset int) (*dto.AuditListResponse, error)
}

// AuditHandler consulta el registro de auditoría de un recurso.
type AuditHandler struct {
	uc auditQuerier
}

// NewAuditHandler construye el handler.
func NewAuditHandler(uc auditQuerier) *AuditHandler {
	return &AuditHandler{uc: uc}
}

// List godoc
// @Summary      Auditoría de un recurso
// @Tags         audit
// @Security     Bearer
// @Produce      json
// @Param        resource_type  path   string  true   "adjustment_batch | product | warehouse | customer"
// @Param        resource_id    path   string  true   "ID del recurso"
// @Param        limit          query  int     false  "Límite"  default(20)
// @Param        offset         query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.AuditListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/audit/{resource_type}/{resource_id} [get]
func (h *AuditHandler) List(c *fiber.Ctx) error {
	limit, offset := page(c)
	out, err := h.uc.Query(c.UserContext(), c.Params("resource_type"), c.Params("resource_id"), limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
