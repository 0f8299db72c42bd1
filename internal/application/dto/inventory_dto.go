package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceResponse saldo de un producto en una bodega.
type BalanceResponse struct {
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// BalanceListResponse saldos de varios productos en una bodega.
type BalanceListResponse struct {
	WarehouseID string            `json:"warehouse_id"`
	Items       []BalanceResponse `json:"items"`
}

// DraftLineRequest línea pedida al construir un borrador. UnitCost nil = costo vigente del producto.
type DraftLineRequest struct {
	ProductID string           `json:"product_id" validate:"required"`
	Direction string           `json:"direction" validate:"required,oneof=addition subtraction"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
}

// ConversionRequest datos de una conversión Production/Marination.
type ConversionRequest struct {
	SourceProductID       string          `json:"source_product_id" validate:"required"`
	ProducedProductID     string          `json:"produced_product_id,omitempty"`
	Quantity              decimal.Decimal `json:"quantity"`
	AdditionalCostPerUnit decimal.Decimal `json:"additional_cost_per_unit"`
}

// BuildDraftRequest body de POST /api/inventory/adjustments/drafts.
// BatchID presente: borrador para editar ese lote (saldos sin sus líneas actuales).
type BuildDraftRequest struct {
	BatchID     string             `json:"batch_id,omitempty"`
	Reference   string             `json:"reference,omitempty" validate:"max=60"`
	WarehouseID string             `json:"warehouse_id" validate:"required"`
	Reason      string             `json:"reason" validate:"required"`
	ReasonNote  string             `json:"reason_note,omitempty" validate:"max=500"`
	Lines       []DraftLineRequest `json:"lines" validate:"dive"`
	Conversion  *ConversionRequest `json:"conversion,omitempty"`
}

// AdjustmentLineResponse línea confirmada.
type AdjustmentLineResponse struct {
	ID          string          `json:"id"`
	LineNo      int             `json:"line_no"`
	ProductID   string          `json:"product_id"`
	ProductCode string          `json:"product_code,omitempty"`
	ProductName string          `json:"product_name,omitempty"`
	Direction   string          `json:"direction"`
	Quantity    decimal.Decimal `json:"quantity"`
	BeforeStock decimal.Decimal `json:"before_stock"`
	AfterStock  decimal.Decimal `json:"after_stock"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	TotalCost   decimal.Decimal `json:"total_cost"`
}

// AdjustmentBatchResponse lote con sus líneas. AuditWarning no vacío: la mutación persistió
// pero la auditoría no se pudo registrar.
type AdjustmentBatchResponse struct {
	ID                    string                   `json:"id"`
	Reference             string                   `json:"reference"`
	WarehouseID           string                   `json:"warehouse_id"`
	Reason                string                   `json:"reason"`
	ReasonNote            string                   `json:"reason_note,omitempty"`
	AdditionalCostPerUnit decimal.Decimal          `json:"additional_cost_per_unit"`
	AdjustedBy            string                   `json:"adjusted_by"`
	AdjustedAt            time.Time                `json:"adjusted_at"`
	Lines                 []AdjustmentLineResponse `json:"lines,omitempty"`
	AuditWarning          string                   `json:"audit_warning,omitempty"`
}

// AdjustmentBatchListResponse lista paginada de lotes (sin líneas).
type AdjustmentBatchListResponse struct {
	Items []AdjustmentBatchResponse `json:"items"`
	Page  PageResponse              `json:"page"`
}

// DeleteAdjustmentResponse resultado de eliminar un lote.
type DeleteAdjustmentResponse struct {
	ID           string `json:"id"`
	Deleted      bool   `json:"deleted"`
	AuditWarning string `json:"audit_warning,omitempty"`
}

// MovementQuery filtros del historial de movimientos.
type MovementQuery struct {
	ProductID   string
	WarehouseID string
	From        *time.Time
	To          *time.Time
	Kind        string
}

// MovementResponse movimiento desnormalizado del historial.
type MovementResponse struct {
	Kind           string          `json:"kind"`
	SourceID       string          `json:"source_id"`
	Reference      string          `json:"reference"`
	Date           time.Time       `json:"date"`
	ProductID      string          `json:"product_id"`
	ProductCode    string          `json:"product_code"`
	ProductName    string          `json:"product_name"`
	WarehouseID    string          `json:"warehouse_id"`
	WarehouseName  string          `json:"warehouse_name"`
	Direction      string          `json:"direction,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	SignedQuantity decimal.Decimal `json:"signed_quantity"`
	UnitAmount     decimal.Decimal `json:"unit_amount"`
	Reason         string          `json:"reason,omitempty"`
}

// MovementListResponse historial ordenado por fecha descendente.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Count int                `json:"count"`
}
