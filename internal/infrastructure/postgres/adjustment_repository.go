package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.AdjustmentRepository = (*AdjustmentRepo)(nil)

const (
	batchColumns = `id, reference, warehouse_id, reason, reason_note, additional_cost_per_unit, adjusted_by, adjusted_at, created_at, updated_at`
	lineColumns  = `id, batch_id, line_no, product_id, direction, quantity, before_stock, after_stock, unit_cost, total_cost, created_at`
)

// AdjustmentRepo lotes y líneas de ajuste sobre PostgreSQL. Las escrituras van dentro del TxRunner.
type AdjustmentRepo struct {
	q Querier
}

// NewAdjustmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAdjustmentRepository(q Querier) *AdjustmentRepo {
	return &AdjustmentRepo{q: q}
}

func scanBatch(row pgx.Row) (*entity.AdjustmentBatch, error) {
	var b entity.AdjustmentBatch
	var reason string
	if err := row.Scan(&b.ID, &b.Reference, &b.WarehouseID, &reason, &b.ReasonNote, &b.AdditionalCostPerUnit,
		&b.AdjustedBy, &b.AdjustedAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Reason = entity.AdjustmentReason(reason)
	return &b, nil
}

// CreateBatch inserta la cabecera. Una referencia repetida devuelve ErrDuplicate.
func (r *AdjustmentRepo) CreateBatch(ctx context.Context, b *entity.AdjustmentBatch) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO adjustment_batches (`+batchColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID, b.Reference, b.WarehouseID, string(b.Reason), b.ReasonNote, b.AdditionalCostPerUnit,
		b.AdjustedBy, b.AdjustedAt, b.CreatedAt, b.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: la referencia %s ya existe", domain.ErrDuplicate, b.Reference)
	}
	return classify("insert adjustment batch", err)
}

func (r *AdjustmentRepo) getBatch(ctx context.Context, op, query, id string) (*entity.AdjustmentBatch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(op, err)
	}
	return b, nil
}

// GetBatch obtiene una cabecera por ID.
func (r *AdjustmentRepo) GetBatch(ctx context.Context, id string) (*entity.AdjustmentBatch, error) {
	return r.getBatch(ctx, "get adjustment batch", `SELECT `+batchColumns+` FROM adjustment_batches WHERE id = $1`, id)
}

// GetBatchForUpdate obtiene la cabecera y la bloquea (SELECT FOR UPDATE).
func (r *AdjustmentRepo) GetBatchForUpdate(ctx context.Context, id string) (*entity.AdjustmentBatch, error) {
	return r.getBatch(ctx, "get adjustment batch for update",
		`SELECT `+batchColumns+` FROM adjustment_batches WHERE id = $1 FOR UPDATE`, id)
}

// UpdateBatch reescribe la cabecera (edición de lote).
func (r *AdjustmentRepo) UpdateBatch(ctx context.Context, b *entity.AdjustmentBatch) error {
	_, err := r.q.Exec(ctx, `
		UPDATE adjustment_batches
		SET reference = $2, warehouse_id = $3, reason = $4, reason_note = $5, additional_cost_per_unit = $6,
		    adjusted_by = $7, adjusted_at = $8, updated_at = $9
		WHERE id = $1`,
		b.ID, b.Reference, b.WarehouseID, string(b.Reason), b.ReasonNote, b.AdditionalCostPerUnit,
		b.AdjustedBy, b.AdjustedAt, b.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: la referencia %s ya existe", domain.ErrDuplicate, b.Reference)
	}
	return classify("update adjustment batch", err)
}

// DeleteBatch elimina la cabecera; las líneas caen por ON DELETE CASCADE.
func (r *AdjustmentRepo) DeleteBatch(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM adjustment_batches WHERE id = $1`, id)
	return classify("delete adjustment batch", err)
}

// ListBatches lista cabeceras, más recientes primero.
func (r *AdjustmentRepo) ListBatches(ctx context.Context, f repository.AdjustmentFilter) ([]*entity.AdjustmentBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM adjustment_batches`
	args := []any{}
	pos := 1
	if f.WarehouseID != "" {
		query += fmt.Sprintf(" WHERE warehouse_id = $%d", pos)
		args = append(args, f.WarehouseID)
		pos++
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY adjusted_at DESC, reference LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list adjustment batches", err)
	}
	defer rows.Close()
	var list []*entity.AdjustmentBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan adjustment batch: %w", err)
		}
		list = append(list, b)
	}
	return list, classify("list adjustment batches", rows.Err())
}

// CreateLines inserta las líneas en un solo round-trip, en orden de LineNo.
func (r *AdjustmentRepo) CreateLines(ctx context.Context, lines []*entity.AdjustmentLine) error {
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`INSERT INTO adjustment_lines (`+lineColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			l.ID, l.BatchID, l.LineNo, l.ProductID, string(l.Direction), l.Quantity,
			l.BeforeStock, l.AfterStock, l.UnitCost, l.TotalCost, l.CreatedAt)
	}
	results := r.q.SendBatch(ctx, batch)
	for _, l := range lines {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return classify(fmt.Sprintf("insert adjustment line %d", l.LineNo), err)
		}
	}
	return classify("insert adjustment lines", results.Close())
}

// ListLines devuelve las líneas de un lote en orden de inserción.
func (r *AdjustmentRepo) ListLines(ctx context.Context, batchID string) ([]*entity.AdjustmentLine, error) {
	rows, err := r.q.Query(ctx, `SELECT `+lineColumns+` FROM adjustment_lines WHERE batch_id = $1 ORDER BY line_no`, batchID)
	if err != nil {
		return nil, classify("list adjustment lines", err)
	}
	defer rows.Close()
	var list []*entity.AdjustmentLine
	for rows.Next() {
		var l entity.AdjustmentLine
		var dir string
		if err := rows.Scan(&l.ID, &l.BatchID, &l.LineNo, &l.ProductID, &dir, &l.Quantity,
			&l.BeforeStock, &l.AfterStock, &l.UnitCost, &l.TotalCost, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan adjustment line: %w", err)
		}
		l.Direction = entity.Direction(dir)
		list = append(list, &l)
	}
	return list, classify("list adjustment lines", rows.Err())
}

// DeleteLines elimina todas las líneas de un lote (edición).
func (r *AdjustmentRepo) DeleteLines(ctx context.Context, batchID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM adjustment_lines WHERE batch_id = $1`, batchID)
	return classify("delete adjustment lines", err)
}
