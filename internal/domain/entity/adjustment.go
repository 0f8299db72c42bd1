package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentReason motivo de un lote de ajuste (taxonomía fija).
type AdjustmentReason string

const (
	ReasonStockAdjustment AdjustmentReason = "Stock Adjustment"
	ReasonProduction      AdjustmentReason = "Production/Marination"
	ReasonOther           AdjustmentReason = "Other"
)

// Valid indica si el motivo pertenece a la taxonomía.
func (r AdjustmentReason) Valid() bool {
	switch r {
	case ReasonStockAdjustment, ReasonProduction, ReasonOther:
		return true
	}
	return false
}

// IsConversion indica si el motivo dispara la conversión de producción (dos líneas + roll-up de costo).
func (r AdjustmentReason) IsConversion() bool { return r == ReasonProduction }

// Direction sentido de una línea de ajuste.
type Direction string

const (
	DirectionAddition    Direction = "addition"
	DirectionSubtraction Direction = "subtraction"
)

// Valid indica si el sentido es addition o subtraction.
func (d Direction) Valid() bool {
	return d == DirectionAddition || d == DirectionSubtraction
}

// Sign devuelve +1 para addition y -1 para subtraction.
func (d Direction) Sign() decimal.Decimal {
	if d == DirectionSubtraction {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// AdjustmentBatch cabecera de un lote de ajuste: unidad de commit atómico.
type AdjustmentBatch struct {
	ID                    string
	Reference             string // única; autogenerada si viene vacía
	WarehouseID           string
	Reason                AdjustmentReason
	ReasonNote            string          // obligatoria para Other
	AdditionalCostPerUnit decimal.Decimal // solo conversiones
	AdjustedBy            string
	AdjustedAt            time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// AuditValues instantánea de campos de cabecera para el diff de auditoría.
func (b *AdjustmentBatch) AuditValues() map[string]any {
	if b == nil {
		return nil
	}
	return map[string]any{
		"reference":                b.Reference,
		"warehouse_id":             b.WarehouseID,
		"reason":                   string(b.Reason),
		"reason_note":              b.ReasonNote,
		"additional_cost_per_unit": b.AdditionalCostPerUnit,
		"adjusted_by":              b.AdjustedBy,
		"adjusted_at":              b.AdjustedAt,
	}
}

// AdjustmentLine línea de un lote. AfterStock = BeforeStock ± Quantity según Direction.
type AdjustmentLine struct {
	ID          string
	BatchID     string
	LineNo      int // orden de inserción dentro del lote
	ProductID   string
	Direction   Direction
	Quantity    decimal.Decimal
	BeforeStock decimal.Decimal
	AfterStock  decimal.Decimal
	UnitCost    decimal.Decimal
	TotalCost   decimal.Decimal
	CreatedAt   time.Time
}

// SignedQuantity cantidad con signo según el sentido.
func (l *AdjustmentLine) SignedQuantity() decimal.Decimal {
	return l.Quantity.Mul(l.Direction.Sign())
}

// CheckArithmetic verifica after = before ± quantity y total = quantity × unit_cost.
func (l *AdjustmentLine) CheckArithmetic() bool {
	if !l.Direction.Valid() {
		return false
	}
	if !l.AfterStock.Equal(l.BeforeStock.Add(l.SignedQuantity())) {
		return false
	}
	return l.TotalCost.Equal(l.Quantity.Mul(l.UnitCost))
}
