package entity

import "time"

// Warehouse representa una bodega. Todo stock se calcula por par (producto, bodega).
type Warehouse struct {
	ID        string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuditValues instantánea de campos para el diff de auditoría.
func (w *Warehouse) AuditValues() map[string]any {
	if w == nil {
		return nil
	}
	return map[string]any{"name": w.Name, "address": w.Address}
}
