package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// StockKey par (bodega, producto) cuyo saldo se serializa entre transacciones.
type StockKey struct {
	WarehouseID string
	ProductID   string
}

// StockSourceRepository sumas agregadas de las tres fuentes de eventos para una bodega.
// Los mapas solo traen claves para productos con filas; filas sin bodega no cuentan.
type StockSourceRepository interface {
	SumPurchases(ctx context.Context, warehouseID string, productIDs []string) (map[string]decimal.Decimal, error)
	SumSales(ctx context.Context, warehouseID string, productIDs []string) (map[string]decimal.Decimal, error)
	// SumAdjustments suma con signo las líneas cuyo lote es de la bodega; excludeBatchID vacío no excluye nada.
	SumAdjustments(ctx context.Context, warehouseID string, productIDs []string, excludeBatchID string) (map[string]decimal.Decimal, error)
	// LockBalances bloquea los pares hasta el fin de la transacción; solo tiene efecto dentro de una tx.
	LockBalances(ctx context.Context, keys []StockKey) error
}

// StockEventRepository alta de eventos de compra y venta (importación y pruebas).
type StockEventRepository interface {
	CreatePurchaseLine(ctx context.Context, line *entity.PurchaseLine) error
	CreateSaleLine(ctx context.Context, line *entity.SaleLine) error
}
