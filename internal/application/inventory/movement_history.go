package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// MovementHistoryUseCase une compras, ventas y ajustes en un historial por fecha descendente.
// Solo lectura; la paginación la hace el llamador.
type MovementHistoryUseCase struct {
	repo repository.MovementRepository
}

// NewMovementHistoryUseCase construye el caso de uso.
func NewMovementHistoryUseCase(repo repository.MovementRepository) *MovementHistoryUseCase {
	return &MovementHistoryUseCase{repo: repo}
}

// Query consulta las fuentes en paralelo según el filtro y devuelve el historial con cantidades con signo:
// compras y adiciones positivas; ventas y restas negativas.
func (uc *MovementHistoryUseCase) Query(ctx context.Context, q dto.MovementQuery) (*dto.MovementListResponse, error) {
	kind := entity.MovementKind(q.Kind)
	if q.Kind != "" && !kind.Valid() {
		return nil, domain.NewValidationError("kind", fmt.Sprintf("tipo desconocido %q (purchase, sale, adjustment)", q.Kind))
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, domain.NewValidationError("from", "from no puede ser posterior a to")
	}
	filter := repository.MovementFilter{ProductID: q.ProductID, WarehouseID: q.WarehouseID, From: q.From, To: q.To}

	type source struct {
		kind entity.MovementKind
		list func(context.Context, repository.MovementFilter) ([]entity.Movement, error)
	}
	sources := []source{
		{entity.MovementPurchase, uc.repo.ListPurchaseMovements},
		{entity.MovementSale, uc.repo.ListSaleMovements},
		{entity.MovementAdjustment, uc.repo.ListAdjustmentMovements},
	}
	results := make([][]entity.Movement, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range sources {
		if q.Kind != "" && s.kind != kind {
			continue
		}
		g.Go(func() error {
			list, err := s.list(gctx, filter)
			if err != nil {
				return fmt.Errorf("movimientos %s: %w", s.kind, err)
			}
			for j := range list {
				list[j].Kind = s.kind
				list[j].SignedQuantity = signed(list[j])
			}
			results[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []entity.Movement
	for _, r := range results {
		all = append(all, r...)
	}
	SortMovements(all)

	out := &dto.MovementListResponse{Items: make([]dto.MovementResponse, 0, len(all)), Count: len(all)}
	for _, m := range all {
		out.Items = append(out.Items, dto.MovementResponse{
			Kind:           string(m.Kind),
			SourceID:       m.SourceID,
			Reference:      m.Reference,
			Date:           m.Date,
			ProductID:      m.ProductID,
			ProductCode:    m.ProductCode,
			ProductName:    m.ProductName,
			WarehouseID:    m.WarehouseID,
			WarehouseName:  m.WarehouseName,
			Direction:      string(m.Direction),
			Quantity:       m.Quantity,
			SignedQuantity: m.SignedQuantity,
			UnitAmount:     m.UnitAmount,
			Reason:         m.Reason,
		})
	}
	return out, nil
}

func signed(m entity.Movement) decimal.Decimal {
	switch m.Kind {
	case entity.MovementSale:
		return m.Quantity.Neg()
	case entity.MovementAdjustment:
		return m.Quantity.Mul(m.Direction.Sign())
	default:
		return m.Quantity
	}
}

// SortMovements ordena por fecha descendente; en empate por tipo, referencia y número de línea
// para un orden estable entre consultas.
func SortMovements(ms []entity.Movement) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Reference != b.Reference {
			return a.Reference < b.Reference
		}
		if a.LineNo != b.LineNo {
			return a.LineNo < b.LineNo
		}
		return a.SourceID < b.SourceID
	})
}
