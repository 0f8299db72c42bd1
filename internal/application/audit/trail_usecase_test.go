package audit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditLogEntry
	fail    error
}

func (r *memAuditRepo) Append(_ context.Context, e *entity.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *memAuditRepo) ListByResource(_ context.Context, resourceType, resourceID string, limit, offset int) ([]*entity.AuditLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.AuditLogEntry
	for _, e := range r.entries {
		if e.ResourceType == resourceType && e.ResourceID == resourceID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTrail(repo *memAuditRepo) *TrailUseCase {
	uc := NewTrailUseCase(repo)
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	n := 0
	uc.now = func() time.Time { n++; return base.Add(time.Duration(n) * time.Minute) }
	return uc
}

func TestRecord_GuardaSoloCamposCambiados(t *testing.T) {
	repo := &memAuditRepo{}
	uc := newTrail(repo)

	err := uc.Record(context.Background(), "u1", entity.AuditUpdate, entity.ResourceCustomer, "c1",
		map[string]any{"a": 1, "b": 2}, map[string]any{"a": 1, "b": 3})
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)
	e := repo.entries[0]
	assert.Equal(t, "u1", e.ActorID)
	assert.Equal(t, entity.AuditUpdate, e.Action)
	require.Len(t, e.Changes, 1)
	assert.Equal(t, entity.FieldChange{Field: "b", From: 2, To: 3}, e.Changes[0])
}

func TestRecord_FalloDelRepositorio(t *testing.T) {
	repo := &memAuditRepo{fail: errors.New("disco lleno")}
	uc := newTrail(repo)

	err := uc.Record(context.Background(), "u1", entity.AuditCreate, entity.ResourceAdjustmentBatch, "b1", nil, map[string]any{"x": 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuditWriteFailure)
	var awf *domain.AuditWriteFailureError
	require.ErrorAs(t, err, &awf)
	assert.Equal(t, "b1", awf.ResourceID)
}

func TestRecord_EntradaInvalida(t *testing.T) {
	uc := newTrail(&memAuditRepo{})
	assert.ErrorIs(t, uc.Record(context.Background(), "u1", "patch", "sale", "s1", nil, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, uc.Record(context.Background(), "u1", entity.AuditCreate, "", "s1", nil, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, uc.Record(context.Background(), "u1", entity.AuditCreate, "sale", " ", nil, nil), domain.ErrInvalidInput)
}

func TestQuery_MasRecientesPrimeroYPaginado(t *testing.T) {
	repo := &memAuditRepo{}
	uc := newTrail(repo)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, uc.Record(ctx, "u1", entity.AuditUpdate, entity.ResourceSale, "s1",
			map[string]any{"n": i}, map[string]any{"n": i + 1}))
	}
	require.NoError(t, uc.Record(ctx, "u1", entity.AuditCreate, entity.ResourceSale, "otra", nil, map[string]any{"n": 1}))

	out, err := uc.Query(ctx, entity.ResourceSale, "s1", 2, 0)
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, 3, out.Items[0].Changes[0].To)
	assert.Equal(t, 2, out.Items[1].Changes[0].To)
	assert.True(t, out.Items[0].CreatedAt.After(out.Items[1].CreatedAt))

	out, err = uc.Query(ctx, entity.ResourceSale, "s1", 2, 2)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, 1, out.Items[0].Changes[0].To)

	_, err = uc.Query(ctx, "", "s1", 10, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
