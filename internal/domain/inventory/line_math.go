package inventory

import (
	"github.com/shopspring/decimal"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// MaxScale decimales que se almacenan para cantidades, saldos y costos unitarios.
const MaxScale = 4

// FitsScale indica si v se guarda sin redondeo con MaxScale decimales.
func FitsScale(v decimal.Decimal) bool {
	return v.Equal(v.Truncate(MaxScale))
}

// ApplyDirection calcula el stock posterior: before + qty (addition) o before − qty (subtraction).
func ApplyDirection(before decimal.Decimal, dir entity.Direction, qty decimal.Decimal) decimal.Decimal {
	if dir == entity.DirectionSubtraction {
		return before.Sub(qty)
	}
	return before.Add(qty)
}

// LineTotal total_cost = quantity × unit_cost.
func LineTotal(qty, unitCost decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitCost)
}

// ConversionUnitCost costo del bien producido tras una conversión: costo del origen + costo adicional.
// Reemplaza el costo anterior; no promedia contra el stock previo.
func ConversionUnitCost(sourceCost, additionalPerUnit decimal.Decimal) decimal.Decimal {
	return sourceCost.Add(additionalPerUnit)
}

// BalanceSources sumas por fuente de eventos para un par (producto, bodega).
type BalanceSources struct {
	Purchased decimal.Decimal
	Sold      decimal.Decimal
	Adjusted  decimal.Decimal // suma de ajustes con signo
}

// Balance Σcompras − Σventas + Σajustes.
func (s BalanceSources) Balance() decimal.Decimal {
	return s.Purchased.Sub(s.Sold).Add(s.Adjusted)
}
