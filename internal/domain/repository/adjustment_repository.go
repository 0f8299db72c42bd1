package repository

import (
	"context"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// AdjustmentFilter filtros para listar lotes.
type AdjustmentFilter struct {
	WarehouseID string
	Limit       int
	Offset      int
}

// AdjustmentRepository puerto de persistencia de lotes y líneas de ajuste.
// Las escrituras deben ejecutarse dentro de una transacción (TxRunner).
type AdjustmentRepository interface {
	CreateBatch(ctx context.Context, batch *entity.AdjustmentBatch) error
	GetBatch(ctx context.Context, id string) (*entity.AdjustmentBatch, error)
	// GetBatchForUpdate bloquea la cabecera hasta el fin de la transacción.
	GetBatchForUpdate(ctx context.Context, id string) (*entity.AdjustmentBatch, error)
	UpdateBatch(ctx context.Context, batch *entity.AdjustmentBatch) error
	// DeleteBatch elimina la cabecera y, en cascada, sus líneas.
	DeleteBatch(ctx context.Context, id string) error
	ListBatches(ctx context.Context, filter AdjustmentFilter) ([]*entity.AdjustmentBatch, error)

	CreateLines(ctx context.Context, lines []*entity.AdjustmentLine) error
	ListLines(ctx context.Context, batchID string) ([]*entity.AdjustmentLine, error)
	DeleteLines(ctx context.Context, batchID string) error
}
