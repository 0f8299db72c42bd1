package audit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	domainaudit "github.com/jhoicas/stockledger-api/internal/domain/audit"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// TrailUseCase registro de auditoría campo a campo. Solo anexa; nunca modifica ni borra.
type TrailUseCase struct {
	repo repository.AuditLogRepository
	now  func() time.Time
}

// NewTrailUseCase construye el caso de uso.
func NewTrailUseCase(repo repository.AuditLogRepository) *TrailUseCase {
	return &TrailUseCase{repo: repo, now: time.Now}
}

// Record calcula el diff entre oldValues y newValues y anexa una entrada.
// Un fallo del repositorio se devuelve como *domain.AuditWriteFailureError.
func (uc *TrailUseCase) Record(ctx context.Context, actorID string, action entity.AuditAction, resourceType, resourceID string, oldValues, newValues map[string]any) error {
	if !action.Valid() {
		return domain.NewValidationError("action", "acción desconocida "+string(action))
	}
	if strings.TrimSpace(resourceType) == "" {
		return domain.NewValidationError("resource_type", "requerido")
	}
	if strings.TrimSpace(resourceID) == "" {
		return domain.NewValidationError("resource_id", "requerido")
	}
	entry := &entity.AuditLogEntry{
		ID:           uuid.New().String(),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ActorID:      actorID,
		Action:       action,
		Changes:      domainaudit.Diff(oldValues, newValues),
		CreatedAt:    uc.now().UTC(),
	}
	if err := uc.repo.Append(ctx, entry); err != nil {
		return &domain.AuditWriteFailureError{ResourceType: resourceType, ResourceID: resourceID, Err: err}
	}
	return nil
}

// Query entradas del recurso, más recientes primero.
func (uc *TrailUseCase) Query(ctx context.Context, resourceType, resourceID string, limit, offset int) (*dto.AuditListResponse, error) {
	if strings.TrimSpace(resourceType) == "" {
		return nil, domain.NewValidationError("resource_type", "requerido")
	}
	if strings.TrimSpace(resourceID) == "" {
		return nil, domain.NewValidationError("resource_id", "requerido")
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := uc.repo.ListByResource(ctx, resourceType, resourceID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		changes := make([]dto.FieldChangeResponse, 0, len(e.Changes))
		for _, c := range e.Changes {
			changes = append(changes, dto.FieldChangeResponse{Field: c.Field, From: c.From, To: c.To})
		}
		items = append(items, dto.AuditEntryResponse{
			ID:           e.ID,
			ResourceType: e.ResourceType,
			ResourceID:   e.ResourceID,
			ActorID:      e.ActorID,
			Action:       string(e.Action),
			Changes:      changes,
			CreatedAt:    e.CreatedAt,
		})
	}
	return &dto.AuditListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}}, nil
}
