package repository

import (
	"context"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// AuditLogRepository registro append-only: no expone update ni delete.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *entity.AuditLogEntry) error
	// ListByResource devuelve entradas del recurso, más recientes primero.
	ListByResource(ctx context.Context, resourceType, resourceID string, limit, offset int) ([]*entity.AuditLogEntry, error)
}
