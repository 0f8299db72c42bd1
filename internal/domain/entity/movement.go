package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind origen de un movimiento en el historial.
type MovementKind string

const (
	MovementPurchase   MovementKind = "purchase"
	MovementSale       MovementKind = "sale"
	MovementAdjustment MovementKind = "adjustment"
)

// Valid indica si el tipo es conocido.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementPurchase, MovementSale, MovementAdjustment:
		return true
	}
	return false
}

// Movement evento desnormalizado del historial: lleva lo necesario para mostrarse sin más consultas.
type Movement struct {
	Kind           MovementKind
	SourceID       string // id de la línea de compra, venta o ajuste
	Reference      string
	Date           time.Time
	ProductID      string
	ProductCode    string
	ProductName    string
	WarehouseID    string
	WarehouseName  string
	Direction      Direction // solo ajustes
	Quantity       decimal.Decimal
	SignedQuantity decimal.Decimal
	UnitAmount     decimal.Decimal // costo (compra/ajuste) o precio (venta)
	Reason         string          // solo ajustes
	LineNo         int
}
