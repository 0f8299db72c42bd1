package entity

import "time"

// Customer representa un cliente (referenciado por las ventas).
type Customer struct {
	ID        string
	Name      string
	TaxID     string // NIT o cédula
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuditValues instantánea de campos para el diff de auditoría.
func (c *Customer) AuditValues() map[string]any {
	if c == nil {
		return nil
	}
	return map[string]any{
		"name":   c.Name,
		"tax_id": c.TaxID,
		"email":  c.Email,
		"phone":  c.Phone,
	}
}
