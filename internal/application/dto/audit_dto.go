package dto

import "time"

// FieldChangeResponse cambio de un campo.
type FieldChangeResponse struct {
	Field string `json:"field"`
	From  any    `json:"from"`
	To    any    `json:"to"`
}

// AuditEntryResponse entrada del registro de auditoría.
type AuditEntryResponse struct {
	ID           string                `json:"id"`
	ResourceType string                `json:"resource_type"`
	ResourceID   string                `json:"resource_id"`
	ActorID      string                `json:"actor_id"`
	Action       string                `json:"action"`
	Changes      []FieldChangeResponse `json:"changes"`
	CreatedAt    time.Time             `json:"created_at"`
}

// AuditListResponse entradas más recientes primero.
type AuditListResponse struct {
	Items []AuditEntryResponse `json:"items"`
	Page  PageResponse         `json:"page"`
}
