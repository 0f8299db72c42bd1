package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stockledger-api/internal/domain"
	inv "github.com/jhoicas/stockledger-api/internal/domain/inventory"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// BalanceResolver calcula el stock actual de (producto, bodega) plegando compras, ventas y ajustes.
// Solo lectura; no reintenta: un fallo de almacenamiento se propaga al llamador.
type BalanceResolver struct {
	sources repository.StockSourceRepository
}

// NewBalanceResolver construye el resolvedor.
func NewBalanceResolver(sources repository.StockSourceRepository) *BalanceResolver {
	return &BalanceResolver{sources: sources}
}

// Resolve saldo de un producto en una bodega. Un saldo negativo es un hecho registrado, no un error.
func (r *BalanceResolver) Resolve(ctx context.Context, productID, warehouseID string) (decimal.Decimal, error) {
	if strings.TrimSpace(productID) == "" {
		return decimal.Zero, domain.NewValidationError("product_id", "requerido")
	}
	m, err := r.ResolveMany(ctx, []string{productID}, warehouseID)
	if err != nil {
		return decimal.Zero, err
	}
	return m[productID], nil
}

// ResolveMany saldos de varios productos en una bodega. Todo id pedido aparece en el mapa (cero si no hay eventos).
func (r *BalanceResolver) ResolveMany(ctx context.Context, productIDs []string, warehouseID string) (map[string]decimal.Decimal, error) {
	return r.ResolveExcluding(ctx, productIDs, warehouseID, "")
}

// ResolveExcluding como ResolveMany pero ignorando las líneas del lote excludeBatchID
// (saldos vistos al editar ese lote).
func (r *BalanceResolver) ResolveExcluding(ctx context.Context, productIDs []string, warehouseID, excludeBatchID string) (map[string]decimal.Decimal, error) {
	if strings.TrimSpace(warehouseID) == "" {
		return nil, domain.NewValidationError("warehouse_id", "requerida")
	}
	ids := uniqueIDs(productIDs)
	if len(ids) == 0 {
		return nil, domain.NewValidationError("product_ids", "al menos un producto")
	}
	return resolveBalances(ctx, r.sources, ids, warehouseID, excludeBatchID)
}

// resolveBalances pliega las tres fuentes con el repositorio dado (pool o tx).
func resolveBalances(ctx context.Context, src repository.StockSourceRepository, ids []string, warehouseID, excludeBatchID string) (map[string]decimal.Decimal, error) {
	purchased, err := src.SumPurchases(ctx, warehouseID, ids)
	if err != nil {
		return nil, fmt.Errorf("sumar compras: %w", err)
	}
	sold, err := src.SumSales(ctx, warehouseID, ids)
	if err != nil {
		return nil, fmt.Errorf("sumar ventas: %w", err)
	}
	adjusted, err := src.SumAdjustments(ctx, warehouseID, ids, excludeBatchID)
	if err != nil {
		return nil, fmt.Errorf("sumar ajustes: %w", err)
	}
	out := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		out[id] = inv.BalanceSources{
			Purchased: purchased[id],
			Sold:      sold[id],
			Adjusted:  adjusted[id],
		}.Balance()
	}
	return out, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
