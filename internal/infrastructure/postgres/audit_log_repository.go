package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.AuditLogRepository = (*AuditLogRepo)(nil)

// AuditLogRepo registro de auditoría append-only. La tabla tiene un trigger que rechaza UPDATE y DELETE.
type AuditLogRepo struct {
	q Querier
}

// NewAuditLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAuditLogRepository(q Querier) *AuditLogRepo {
	return &AuditLogRepo{q: q}
}

// Append inserta una entrada; changes se guarda como JSONB.
func (r *AuditLogRepo) Append(ctx context.Context, e *entity.AuditLogEntry) error {
	changes := e.Changes
	if changes == nil {
		changes = []entity.FieldChange{}
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO audit_logs (id, resource_type, resource_id, actor_id, action, changes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.ResourceType, e.ResourceID, e.ActorID, string(e.Action), changes, e.CreatedAt,
	)
	return classify("insert audit log", err)
}

// ListByResource entradas de un recurso, más recientes primero.
func (r *AuditLogRepo) ListByResource(ctx context.Context, resourceType, resourceID string, limit, offset int) ([]*entity.AuditLogEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, resource_type, resource_id, actor_id, action, changes, created_at
		FROM audit_logs
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY created_at DESC, seq DESC
		LIMIT $3 OFFSET $4`, resourceType, resourceID, limit, offset)
	if err != nil {
		return nil, classify("list audit logs", err)
	}
	defer rows.Close()
	var list []*entity.AuditLogEntry
	for rows.Next() {
		var e entity.AuditLogEntry
		var action string
		if err := rows.Scan(&e.ID, &e.ResourceType, &e.ResourceID, &e.ActorID, &action, &e.Changes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		e.Action = entity.AuditAction(action)
		list = append(list, &e)
	}
	return list, classify("list audit logs", rows.Err())
}
