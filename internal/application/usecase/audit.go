package usecase

import (
	"context"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/pkg/logger"
)

// auditRecorder contrato mínimo del registro de auditoría (lo implementa *audit.TrailUseCase).
type auditRecorder interface {
	Record(ctx context.Context, actorID string, action entity.AuditAction, resourceType, resourceID string, oldValues, newValues map[string]any) error
}

// catalogAudit registra cambios del catálogo; un fallo se registra en el log y no revierte la mutación.
type catalogAudit struct {
	rec auditRecorder
	log *logger.Logger
}

func newCatalogAudit(rec auditRecorder, log *logger.Logger) catalogAudit {
	if log == nil {
		log = logger.Nop()
	}
	return catalogAudit{rec: rec, log: log}
}

func (a catalogAudit) record(ctx context.Context, actorID string, action entity.AuditAction, resourceType, resourceID string, oldValues, newValues map[string]any) {
	if a.rec == nil {
		return
	}
	if err := a.rec.Record(ctx, actorID, action, resourceType, resourceID, oldValues, newValues); err != nil {
		a.log.Warn().Err(err).
			Str("resource_type", resourceType).
			Str("resource_id", resourceID).
			Str("actor_id", actorID).
			Msg("auditoría no registrada")
	}
}
