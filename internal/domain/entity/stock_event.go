package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseLine línea de compra (fuente append-only, +cantidad).
// WarehouseID vacío: la fila no aporta al saldo de ninguna bodega.
type PurchaseLine struct {
	ID          string
	Reference   string
	ProductID   string
	WarehouseID string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	Date        time.Time
	CreatedAt   time.Time
}

// SaleLine línea de venta (fuente append-only, −cantidad).
type SaleLine struct {
	ID          string
	Reference   string
	CustomerID  string
	ProductID   string
	WarehouseID string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Date        time.Time
	CreatedAt   time.Time
}

// AuditValues instantánea de campos para el diff de auditoría.
func (l *PurchaseLine) AuditValues() map[string]any {
	if l == nil {
		return nil
	}
	return map[string]any{
		"reference":    l.Reference,
		"product_id":   l.ProductID,
		"warehouse_id": l.WarehouseID,
		"quantity":     l.Quantity,
		"unit_cost":    l.UnitCost,
		"date":         l.Date,
	}
}
