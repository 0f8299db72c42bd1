package entity

import "time"

// AuditAction tipo de mutación auditada.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
)

// Valid indica si la acción es conocida.
func (a AuditAction) Valid() bool {
	return a == AuditCreate || a == AuditUpdate || a == AuditDelete
}

// Tipos de recurso auditados.
const (
	ResourceAdjustmentBatch = "adjustment_batch"
	ResourceProduct         = "product"
	ResourceWarehouse       = "warehouse"
	ResourceCustomer        = "customer"
	ResourcePurchase        = "purchase"
	ResourceSale            = "sale"
)

// FieldChange cambio de un campo: {field, from, to}.
type FieldChange struct {
	Field string `json:"field"`
	From  any    `json:"from"`
	To    any    `json:"to"`
}

// AuditLogEntry entrada inmutable del registro de auditoría.
type AuditLogEntry struct {
	ID           string
	ResourceType string
	ResourceID   string
	ActorID      string
	Action       AuditAction
	Changes      []FieldChange
	CreatedAt    time.Time
}
