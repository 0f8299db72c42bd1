package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo lectura desnormalizada de compras, ventas y líneas de ajuste.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// where arma el filtro común; los nombres de columna dependen de la fuente.
func where(f repository.MovementFilter, productCol, warehouseCol, dateCol string) (string, []any) {
	clause := " WHERE TRUE"
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		clause += fmt.Sprintf(" AND %s $%d", cond, len(args))
	}
	if f.ProductID != "" {
		add(productCol+" =", f.ProductID)
	}
	if f.WarehouseID != "" {
		add(warehouseCol+" =", f.WarehouseID)
	}
	if f.From != nil {
		add(dateCol+" >=", *f.From)
	}
	if f.To != nil {
		add(dateCol+" <=", *f.To)
	}
	return clause, args
}

func (r *MovementRepo) list(ctx context.Context, op, query string, args []any, adjustment bool) ([]entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	var list []entity.Movement
	for rows.Next() {
		var m entity.Movement
		dest := []any{&m.SourceID, &m.Reference, &m.Date, &m.ProductID, &m.ProductCode, &m.ProductName,
			&m.WarehouseID, &m.WarehouseName, &m.Quantity, &m.UnitAmount}
		var dir string
		if adjustment {
			dest = append(dest, &dir, &m.Reason, &m.LineNo)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		m.Direction = entity.Direction(dir)
		list = append(list, m)
	}
	return list, classify(op, rows.Err())
}

// ListPurchaseMovements compras con producto y bodega.
func (r *MovementRepo) ListPurchaseMovements(ctx context.Context, f repository.MovementFilter) ([]entity.Movement, error) {
	clause, args := where(f, "pl.product_id", "pl.warehouse_id", "pl.date")
	query := `
		SELECT pl.id, pl.reference, pl.date, pl.product_id, p.code, p.name,
		       COALESCE(pl.warehouse_id, ''), COALESCE(w.name, ''), pl.quantity, pl.unit_cost
		FROM purchase_lines pl
		JOIN products p ON p.id = pl.product_id
		LEFT JOIN warehouses w ON w.id = pl.warehouse_id` + clause + `
		ORDER BY pl.date DESC`
	return r.list(ctx, "list purchase movements", query, args, false)
}

// ListSaleMovements ventas con producto y bodega.
func (r *MovementRepo) ListSaleMovements(ctx context.Context, f repository.MovementFilter) ([]entity.Movement, error) {
	clause, args := where(f, "sl.product_id", "sl.warehouse_id", "sl.date")
	query := `
		SELECT sl.id, sl.reference, sl.date, sl.product_id, p.code, p.name,
		       COALESCE(sl.warehouse_id, ''), COALESCE(w.name, ''), sl.quantity, sl.unit_price
		FROM sale_lines sl
		JOIN products p ON p.id = sl.product_id
		LEFT JOIN warehouses w ON w.id = sl.warehouse_id` + clause + `
		ORDER BY sl.date DESC`
	return r.list(ctx, "list sale movements", query, args, false)
}

// ListAdjustmentMovements líneas de ajuste con la fecha y referencia de su lote.
func (r *MovementRepo) ListAdjustmentMovements(ctx context.Context, f repository.MovementFilter) ([]entity.Movement, error) {
	clause, args := where(f, "l.product_id", "b.warehouse_id", "b.adjusted_at")
	query := `
		SELECT l.id, b.reference, b.adjusted_at, l.product_id, p.code, p.name,
		       b.warehouse_id, w.name, l.quantity, l.unit_cost, l.direction, b.reason, l.line_no
		FROM adjustment_lines l
		JOIN adjustment_batches b ON b.id = l.batch_id
		JOIN products p ON p.id = l.product_id
		JOIN warehouses w ON w.id = b.warehouse_id` + clause + `
		ORDER BY b.adjusted_at DESC, l.line_no`
	return r.list(ctx, "list adjustment movements", query, args, true)
}
