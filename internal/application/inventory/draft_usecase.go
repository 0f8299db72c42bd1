package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	inv "github.com/jhoicas/stockledger-api/internal/domain/inventory"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// DraftUseCase arma borradores de lote contra los saldos actuales.
type DraftUseCase struct {
	resolver    *BalanceResolver
	products    repository.ProductRepository
	warehouses  repository.WarehouseRepository
	adjustments repository.AdjustmentRepository
}

// NewDraftUseCase construye el caso de uso.
func NewDraftUseCase(
	resolver *BalanceResolver,
	products repository.ProductRepository,
	warehouses repository.WarehouseRepository,
	adjustments repository.AdjustmentRepository,
) *DraftUseCase {
	return &DraftUseCase{resolver: resolver, products: products, warehouses: warehouses, adjustments: adjustments}
}

// Build construye el borrador. Con BatchID los saldos excluyen las líneas actuales de ese lote,
// que es lo que verá el commit de la edición después de borrarlas.
func (uc *DraftUseCase) Build(ctx context.Context, in dto.BuildDraftRequest) (*inv.DraftBatch, error) {
	reason := entity.AdjustmentReason(in.Reason)
	if !reason.Valid() {
		return nil, domain.NewValidationError("reason", fmt.Sprintf("motivo desconocido %q", in.Reason))
	}
	if strings.TrimSpace(in.WarehouseID) == "" {
		return nil, domain.NewValidationError("warehouse_id", "debe seleccionar una bodega")
	}
	wh, err := uc.warehouses.GetByID(ctx, in.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("obtener bodega: %w", err)
	}
	if wh == nil {
		return nil, domain.NewValidationError("warehouse_id", fmt.Sprintf("la bodega %s no existe", in.WarehouseID))
	}
	if in.BatchID != "" {
		b, err := uc.adjustments.GetBatch(ctx, in.BatchID)
		if err != nil {
			return nil, fmt.Errorf("obtener lote: %w", err)
		}
		if b == nil {
			return nil, fmt.Errorf("%w: lote %s", domain.ErrNotFound, in.BatchID)
		}
	}

	draft := inv.NewDraftBatch(in.WarehouseID, reason, in.ReasonNote)
	draft.BatchID = in.BatchID
	draft.Reference = strings.TrimSpace(in.Reference)

	ids := make([]string, 0, len(in.Lines)+1)
	for _, l := range in.Lines {
		ids = append(ids, l.ProductID)
	}
	if in.Conversion != nil {
		ids = append(ids, in.Conversion.SourceProductID)
	}
	if len(uniqueIDs(ids)) == 0 {
		return draft, nil
	}

	products, err := uc.products.GetManyByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("obtener productos: %w", err)
	}
	balances, err := uc.resolver.ResolveExcluding(ctx, ids, in.WarehouseID, in.BatchID)
	if err != nil {
		return nil, err
	}

	if reason.IsConversion() {
		if in.Conversion == nil {
			return nil, domain.NewValidationError("conversion.source_product_id", "debe seleccionar el producto origen")
		}
		src := products[in.Conversion.SourceProductID]
		if src == nil {
			return nil, domain.NewValidationError("conversion.source_product_id",
				fmt.Sprintf("el producto %s no existe", in.Conversion.SourceProductID))
		}
		if err := draft.SetProducedProduct(in.Conversion.ProducedProductID); err != nil {
			return nil, err
		}
		if err := draft.SelectConversionSource(inv.SnapshotOf(src), balances[src.ID], in.Conversion.Quantity); err != nil {
			return nil, err
		}
		if err := draft.SetAdditionalCost(in.Conversion.AdditionalCostPerUnit); err != nil {
			return nil, err
		}
		return draft, nil
	}

	for i, l := range in.Lines {
		p := products[l.ProductID]
		if p == nil {
			return nil, domain.NewValidationError(fmt.Sprintf("lines[%d].product_id", i),
				fmt.Sprintf("el producto %s no existe", l.ProductID))
		}
		if err := draft.AddLine(inv.SnapshotOf(p), balances[p.ID], entity.Direction(l.Direction), l.Quantity); err != nil {
			return nil, err
		}
		if l.UnitCost != nil {
			if err := draft.SetUnitCost(p.ID, *l.UnitCost); err != nil {
				return nil, err
			}
		}
	}
	return draft, nil
}

// Balances saldos de uno o varios productos en una bodega.
func (uc *DraftUseCase) Balances(ctx context.Context, warehouseID string, productIDs []string) (*dto.BalanceListResponse, error) {
	ids := uniqueIDs(productIDs)
	balances, err := uc.resolver.ResolveMany(ctx, ids, warehouseID)
	if err != nil {
		return nil, err
	}
	out := &dto.BalanceListResponse{WarehouseID: warehouseID, Items: make([]dto.BalanceResponse, 0, len(ids))}
	for _, id := range ids {
		out.Items = append(out.Items, dto.BalanceResponse{ProductID: id, WarehouseID: warehouseID, Quantity: balances[id]})
	}
	return out, nil
}
