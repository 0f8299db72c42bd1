package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo.
// Cost solo lo modifica una conversión de producción (roll-up); nunca se promedia.
type Product struct {
	ID          string
	Code        string // código único legible
	Name        string
	Description string
	Price       decimal.Decimal // precio de venta
	Cost        decimal.Decimal // costo unitario vigente
	UnitMeasure string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AuditValues instantánea de campos para el diff de auditoría.
func (p *Product) AuditValues() map[string]any {
	if p == nil {
		return nil
	}
	return map[string]any{
		"code":         p.Code,
		"name":         p.Name,
		"description":  p.Description,
		"price":        p.Price,
		"cost":         p.Cost,
		"unit_measure": p.UnitMeasure,
	}
}
