package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var (
	_ repository.StockSourceRepository = (*StockSourceRepo)(nil)
	_ repository.StockEventRepository  = (*StockSourceRepo)(nil)
)

// StockSourceRepo agregados de compras, ventas y ajustes, y alta de compras y ventas.
type StockSourceRepo struct {
	q Querier
}

// NewStockSourceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockSourceRepository(q Querier) *StockSourceRepo {
	return &StockSourceRepo{q: q}
}

func (r *StockSourceRepo) sums(ctx context.Context, op, query string, args ...any) (map[string]decimal.Decimal, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	out := map[string]decimal.Decimal{}
	for rows.Next() {
		var id string
		var qty decimal.Decimal
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out[id] = qty
	}
	return out, classify(op, rows.Err())
}

// SumPurchases cantidad comprada por producto en la bodega. Filas sin bodega no cuentan.
func (r *StockSourceRepo) SumPurchases(ctx context.Context, warehouseID string, productIDs []string) (map[string]decimal.Decimal, error) {
	return r.sums(ctx, "sum purchases", `
		SELECT product_id, SUM(quantity)
		FROM purchase_lines
		WHERE warehouse_id = $1 AND product_id = ANY($2::text[])
		GROUP BY product_id`, warehouseID, productIDs)
}

// SumSales cantidad vendida por producto en la bodega.
func (r *StockSourceRepo) SumSales(ctx context.Context, warehouseID string, productIDs []string) (map[string]decimal.Decimal, error) {
	return r.sums(ctx, "sum sales", `
		SELECT product_id, SUM(quantity)
		FROM sale_lines
		WHERE warehouse_id = $1 AND product_id = ANY($2::text[])
		GROUP BY product_id`, warehouseID, productIDs)
}

// SumAdjustments suma con signo de las líneas de ajuste cuyo lote es de la bodega.
func (r *StockSourceRepo) SumAdjustments(ctx context.Context, warehouseID string, productIDs []string, excludeBatchID string) (map[string]decimal.Decimal, error) {
	return r.sums(ctx, "sum adjustments", `
		SELECT l.product_id,
		       SUM(CASE WHEN l.direction = 'addition' THEN l.quantity ELSE -l.quantity END)
		FROM adjustment_lines l
		JOIN adjustment_batches b ON b.id = l.batch_id
		WHERE b.warehouse_id = $1
		  AND l.product_id = ANY($2::text[])
		  AND ($3::text = '' OR b.id <> $3::text)
		GROUP BY l.product_id`, warehouseID, productIDs, excludeBatchID)
}

// LockBalances toma pg_advisory_xact_lock por cada (bodega, producto), en orden fijo para no
// cruzarse con otra tx. Los bloqueos se liberan con el Commit o Rollback.
func (r *StockSourceRepo) LockBalances(ctx context.Context, keys []repository.StockKey) error {
	ordered := sortedKeys(keys)
	if len(ordered) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, k := range ordered {
		batch.Queue(`SELECT pg_advisory_xact_lock(hashtext($1))`, k.WarehouseID+":"+k.ProductID)
	}
	results := r.q.SendBatch(ctx, batch)
	for _, k := range ordered {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return classify(fmt.Sprintf("lock stock %s:%s", k.WarehouseID, k.ProductID), err)
		}
	}
	return classify("lock stock", results.Close())
}

// sortedKeys sin duplicados ni vacíos, por bodega y luego producto.
func sortedKeys(keys []repository.StockKey) []repository.StockKey {
	seen := make(map[repository.StockKey]bool, len(keys))
	out := make([]repository.StockKey, 0, len(keys))
	for _, k := range keys {
		if k.WarehouseID == "" || k.ProductID == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WarehouseID != out[j].WarehouseID {
			return out[i].WarehouseID < out[j].WarehouseID
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// CreatePurchaseLine registra una línea de compra.
func (r *StockSourceRepo) CreatePurchaseLine(ctx context.Context, l *entity.PurchaseLine) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO purchase_lines (id, reference, product_id, warehouse_id, quantity, unit_cost, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.Reference, l.ProductID, nullable(l.WarehouseID), l.Quantity, l.UnitCost, l.Date, l.CreatedAt,
	)
	return classify("insert purchase line", err)
}

// CreateSaleLine registra una línea de venta.
func (r *StockSourceRepo) CreateSaleLine(ctx context.Context, l *entity.SaleLine) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sale_lines (id, reference, customer_id, product_id, warehouse_id, quantity, unit_price, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.Reference, nullable(l.CustomerID), l.ProductID, nullable(l.WarehouseID), l.Quantity, l.UnitPrice, l.Date, l.CreatedAt,
	)
	return classify("insert sale line", err)
}
