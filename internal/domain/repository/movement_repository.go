package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// MovementFilter filtros opcionales del historial de movimientos (vacío/nil = sin filtro).
type MovementFilter struct {
	ProductID   string
	WarehouseID string
	From        *time.Time
	To          *time.Time
}

// MovementRepository lectura desnormalizada de cada fuente de movimientos.
type MovementRepository interface {
	ListPurchaseMovements(ctx context.Context, filter MovementFilter) ([]entity.Movement, error)
	ListSaleMovements(ctx context.Context, filter MovementFilter) ([]entity.Movement, error)
	ListAdjustmentMovements(ctx context.Context, filter MovementFilter) ([]entity.Movement, error)
}
