package inventory

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// ProductSnapshot datos del producto que el constructor necesita al agregar una línea.
type ProductSnapshot struct {
	ID   string
	Code string
	Name string
	Cost decimal.Decimal
}

// SnapshotOf construye un ProductSnapshot a partir de la entidad.
func SnapshotOf(p *entity.Product) ProductSnapshot {
	return ProductSnapshot{ID: p.ID, Code: p.Code, Name: p.Name, Cost: p.Cost}
}

// DraftLine línea propuesta. BeforeStock es el saldo visto al construir el borrador.
type DraftLine struct {
	ProductID   string           `json:"product_id"`
	ProductCode string           `json:"product_code,omitempty"`
	ProductName string           `json:"product_name,omitempty"`
	Direction   entity.Direction `json:"direction"`
	Quantity    decimal.Decimal  `json:"quantity"`
	BeforeStock decimal.Decimal  `json:"before_stock"`
	AfterStock  decimal.Decimal  `json:"after_stock"`
	UnitCost    decimal.Decimal  `json:"unit_cost"`
	TotalCost   decimal.Decimal  `json:"total_cost"`
}

func (l *DraftLine) recompute() {
	l.AfterStock = ApplyDirection(l.BeforeStock, l.Direction, l.Quantity)
	l.TotalCost = LineTotal(l.Quantity, l.UnitCost)
}

// label identifica la línea en mensajes de error.
func (l *DraftLine) label() string {
	if l.ProductCode != "" {
		return l.ProductCode
	}
	return l.ProductID
}

// Conversion datos de una conversión de producción. La línea de adición del producto
// producido la sintetiza el commit con saldo y costo autoritativos.
type Conversion struct {
	SourceProductID       string          `json:"source_product_id"`
	ProducedProductID     string          `json:"produced_product_id,omitempty"` // vacío: se usa la regla configurada
	Quantity              decimal.Decimal `json:"quantity"`
	AdditionalCostPerUnit decimal.Decimal `json:"additional_cost_per_unit"`
}

// DraftBatch borrador serializable de un lote de ajuste. Se construye, se envía al cliente
// y vuelve íntegro al commit; no hay estado compartido oculto.
type DraftBatch struct {
	BatchID     string                  `json:"batch_id,omitempty"` // lote existente en edición
	Reference   string                  `json:"reference,omitempty"`
	WarehouseID string                  `json:"warehouse_id"`
	Reason      entity.AdjustmentReason `json:"reason"`
	ReasonNote  string                  `json:"reason_note,omitempty"`
	Lines       []DraftLine             `json:"lines"`
	Conversion  *Conversion             `json:"conversion,omitempty"`
}

// NewDraftBatch crea un borrador vacío para la bodega y motivo indicados.
func NewDraftBatch(warehouseID string, reason entity.AdjustmentReason, reasonNote string) *DraftBatch {
	b := &DraftBatch{
		WarehouseID: warehouseID,
		Reason:      reason,
		ReasonNote:  reasonNote,
		Lines:       []DraftLine{},
	}
	if reason.IsConversion() {
		b.Conversion = &Conversion{}
	}
	return b
}

func (b *DraftBatch) find(productID string) int {
	for i := range b.Lines {
		if b.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Line devuelve la línea del producto, si existe.
func (b *DraftBatch) Line(productID string) (DraftLine, bool) {
	if i := b.find(productID); i >= 0 {
		return b.Lines[i], true
	}
	return DraftLine{}, false
}

// AddLine agrega una línea con before = balance y unit_cost = costo vigente del producto.
// En lotes de conversión se usa SelectConversionSource.
func (b *DraftBatch) AddLine(p ProductSnapshot, balance decimal.Decimal, dir entity.Direction, qty decimal.Decimal) error {
	if b.Reason.IsConversion() {
		return domain.NewValidationError("reason", "en Production/Marination se selecciona el producto origen, no se agregan líneas")
	}
	if p.ID == "" {
		return domain.NewValidationError("product_id", "requerido")
	}
	if b.find(p.ID) >= 0 {
		return domain.NewValidationError("product_id", fmt.Sprintf("el producto %s ya está en el lote", labelOf(p)))
	}
	if !dir.Valid() {
		return domain.NewValidationError("direction", fmt.Sprintf("sentido inválido %q", dir))
	}
	if qty.IsNegative() {
		return domain.NewValidationError("quantity", fmt.Sprintf("la cantidad de %s no puede ser negativa", labelOf(p)))
	}
	if !FitsScale(qty) {
		return scaleError("quantity", "la cantidad de "+labelOf(p))
	}
	line := DraftLine{
		ProductID:   p.ID,
		ProductCode: p.Code,
		ProductName: p.Name,
		Direction:   dir,
		Quantity:    qty,
		BeforeStock: balance,
		UnitCost:    p.Cost,
	}
	line.recompute()
	b.Lines = append(b.Lines, line)
	return nil
}

// SetQuantity cambia la cantidad de una línea y recalcula after y total.
func (b *DraftBatch) SetQuantity(productID string, qty decimal.Decimal) error {
	i := b.find(productID)
	if i < 0 {
		return domain.NewValidationError("product_id", fmt.Sprintf("el producto %s no está en el lote", productID))
	}
	if qty.IsNegative() {
		return domain.NewValidationError("quantity", fmt.Sprintf("la cantidad de %s no puede ser negativa", b.Lines[i].label()))
	}
	if !FitsScale(qty) {
		return scaleError("quantity", "la cantidad de "+b.Lines[i].label())
	}
	b.Lines[i].Quantity = qty
	b.Lines[i].recompute()
	if b.Conversion != nil && b.Conversion.SourceProductID == productID {
		b.Conversion.Quantity = qty
	}
	return nil
}

// SetUnitCost cambia el costo unitario de una línea y recalcula el total.
func (b *DraftBatch) SetUnitCost(productID string, cost decimal.Decimal) error {
	i := b.find(productID)
	if i < 0 {
		return domain.NewValidationError("product_id", fmt.Sprintf("el producto %s no está en el lote", productID))
	}
	if cost.IsNegative() {
		return domain.NewValidationError("unit_cost", fmt.Sprintf("el costo de %s no puede ser negativo", b.Lines[i].label()))
	}
	if !FitsScale(cost) {
		return scaleError("unit_cost", "el costo de "+b.Lines[i].label())
	}
	b.Lines[i].UnitCost = cost
	b.Lines[i].recompute()
	return nil
}

// SetDirection cambia el sentido de una línea. La línea origen de una conversión es siempre subtraction.
func (b *DraftBatch) SetDirection(productID string, dir entity.Direction) error {
	i := b.find(productID)
	if i < 0 {
		return domain.NewValidationError("product_id", fmt.Sprintf("el producto %s no está en el lote", productID))
	}
	if !dir.Valid() {
		return domain.NewValidationError("direction", fmt.Sprintf("sentido inválido %q", dir))
	}
	if b.Conversion != nil && b.Conversion.SourceProductID == productID && dir != entity.DirectionSubtraction {
		return domain.NewValidationError("direction", "la línea origen de una conversión es una resta")
	}
	b.Lines[i].Direction = dir
	b.Lines[i].recompute()
	return nil
}

// RemoveLine quita la línea del producto. Quitar el origen limpia la conversión.
func (b *DraftBatch) RemoveLine(productID string) error {
	i := b.find(productID)
	if i < 0 {
		return domain.NewValidationError("product_id", fmt.Sprintf("el producto %s no está en el lote", productID))
	}
	b.Lines = append(b.Lines[:i], b.Lines[i+1:]...)
	if b.Conversion != nil && b.Conversion.SourceProductID == productID {
		b.Conversion.SourceProductID = ""
		b.Conversion.Quantity = decimal.Zero
	}
	return nil
}

// SelectConversionSource fija el producto origen de una conversión: crea exactamente una línea
// subtraction para él, reemplazando una selección previa.
func (b *DraftBatch) SelectConversionSource(p ProductSnapshot, balance, qty decimal.Decimal) error {
	if !b.Reason.IsConversion() {
		return domain.NewValidationError("reason", "solo Production/Marination tiene producto origen")
	}
	if p.ID == "" {
		return domain.NewValidationError("conversion.source_product_id", "requerido")
	}
	if qty.IsNegative() {
		return domain.NewValidationError("conversion.quantity", fmt.Sprintf("la cantidad a convertir de %s no puede ser negativa", labelOf(p)))
	}
	if !FitsScale(qty) {
		return scaleError("conversion.quantity", "la cantidad a convertir de "+labelOf(p))
	}
	if b.Conversion == nil {
		b.Conversion = &Conversion{}
	}
	if b.Conversion.ProducedProductID == p.ID {
		return domain.NewValidationError("conversion.source_product_id", "origen y producido deben ser distintos")
	}
	line := DraftLine{
		ProductID:   p.ID,
		ProductCode: p.Code,
		ProductName: p.Name,
		Direction:   entity.DirectionSubtraction,
		Quantity:    qty,
		BeforeStock: balance,
		UnitCost:    p.Cost,
	}
	line.recompute()
	b.Lines = []DraftLine{line}
	b.Conversion.SourceProductID = p.ID
	b.Conversion.Quantity = qty
	return nil
}

// SetConversionQuantity cambia la cantidad a convertir (y la de la línea origen).
func (b *DraftBatch) SetConversionQuantity(qty decimal.Decimal) error {
	if b.Conversion == nil || b.Conversion.SourceProductID == "" {
		return domain.NewValidationError("conversion.source_product_id", "seleccione primero el producto origen")
	}
	return b.SetQuantity(b.Conversion.SourceProductID, qty)
}

// SetProducedProduct fija explícitamente el producto producido de la conversión.
func (b *DraftBatch) SetProducedProduct(productID string) error {
	if !b.Reason.IsConversion() {
		return domain.NewValidationError("reason", "solo Production/Marination tiene producto producido")
	}
	if b.Conversion == nil {
		b.Conversion = &Conversion{}
	}
	if productID != "" && productID == b.Conversion.SourceProductID {
		return domain.NewValidationError("conversion.produced_product_id", "origen y producido deben ser distintos")
	}
	b.Conversion.ProducedProductID = productID
	return nil
}

// SetAdditionalCost costo adicional por unidad que se suma al costo del origen.
func (b *DraftBatch) SetAdditionalCost(perUnit decimal.Decimal) error {
	if !b.Reason.IsConversion() {
		return domain.NewValidationError("reason", "el costo adicional solo aplica a Production/Marination")
	}
	if perUnit.IsNegative() {
		return domain.NewValidationError("conversion.additional_cost_per_unit", "no puede ser negativo")
	}
	if !FitsScale(perUnit) {
		return scaleError("conversion.additional_cost_per_unit", "el costo adicional")
	}
	if b.Conversion == nil {
		b.Conversion = &Conversion{}
	}
	b.Conversion.AdditionalCostPerUnit = perUnit
	return nil
}

// RefreshBalance actualiza el saldo visto de una línea y recalcula after.
func (b *DraftBatch) RefreshBalance(productID string, balance decimal.Decimal) {
	if i := b.find(productID); i >= 0 {
		b.Lines[i].BeforeStock = balance
		b.Lines[i].recompute()
	}
}

// ProductIDs ids de producto de las líneas, en orden.
func (b *DraftBatch) ProductIDs() []string {
	ids := make([]string, 0, len(b.Lines))
	for _, l := range b.Lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}

// Clone copia profunda del borrador.
func (b *DraftBatch) Clone() *DraftBatch {
	if b == nil {
		return nil
	}
	c := *b
	c.Lines = append([]DraftLine(nil), b.Lines...)
	if b.Conversion != nil {
		conv := *b.Conversion
		c.Conversion = &conv
	}
	return &c
}

// Validate comprueba el borrador antes de cualquier escritura. Recalcula after y total de
// cada línea desde before, sentido y cantidad en lugar de confiar en el cliente.
func (b *DraftBatch) Validate() error {
	if strings.TrimSpace(b.WarehouseID) == "" {
		return domain.NewValidationError("warehouse_id", "debe seleccionar una bodega")
	}
	if !b.Reason.Valid() {
		return domain.NewValidationError("reason", fmt.Sprintf("motivo desconocido %q", b.Reason))
	}
	if b.Reason == entity.ReasonOther && strings.TrimSpace(b.ReasonNote) == "" {
		return domain.NewValidationError("reason_note", "requerida cuando el motivo es Other")
	}
	if len(b.Lines) == 0 {
		return domain.NewValidationError("lines", "el lote debe tener al menos una línea")
	}
	seen := make(map[string]bool, len(b.Lines))
	for i := range b.Lines {
		l := &b.Lines[i]
		field := fmt.Sprintf("lines[%d]", i)
		if strings.TrimSpace(l.ProductID) == "" {
			return domain.NewValidationError(field+".product_id", "requerido")
		}
		if seen[l.ProductID] {
			return domain.NewValidationError(field+".product_id", fmt.Sprintf("el producto %s está repetido", l.label()))
		}
		seen[l.ProductID] = true
		if !l.Direction.Valid() {
			return domain.NewValidationError(field+".direction", fmt.Sprintf("sentido inválido %q para %s", l.Direction, l.label()))
		}
		if l.Quantity.IsNegative() {
			return domain.NewValidationError(field+".quantity", fmt.Sprintf("la cantidad de %s no puede ser negativa", l.label()))
		}
		if !FitsScale(l.Quantity) {
			return scaleError(field+".quantity", "la cantidad de "+l.label())
		}
		if l.UnitCost.IsNegative() {
			return domain.NewValidationError(field+".unit_cost", fmt.Sprintf("el costo de %s no puede ser negativo", l.label()))
		}
		if !FitsScale(l.UnitCost) {
			return scaleError(field+".unit_cost", "el costo de "+l.label())
		}
		l.recompute()
	}
	if b.Reason.IsConversion() {
		return b.validateConversion()
	}
	if b.Conversion != nil && b.Conversion.SourceProductID != "" {
		return domain.NewValidationError("conversion", "solo aplica a Production/Marination")
	}
	b.Conversion = nil
	return nil
}

func (b *DraftBatch) validateConversion() error {
	c := b.Conversion
	if c == nil || strings.TrimSpace(c.SourceProductID) == "" {
		return domain.NewValidationError("conversion.source_product_id", "debe seleccionar el producto origen")
	}
	if len(b.Lines) != 1 {
		return domain.NewValidationError("lines", "una conversión tiene exactamente una línea origen")
	}
	src := b.Lines[0]
	if src.ProductID != c.SourceProductID {
		return domain.NewValidationError("lines[0].product_id", "la línea no corresponde al producto origen")
	}
	if src.Direction != entity.DirectionSubtraction {
		return domain.NewValidationError("lines[0].direction", "la línea origen de una conversión es una resta")
	}
	if !src.Quantity.Equal(c.Quantity) {
		return domain.NewValidationError("conversion.quantity", fmt.Sprintf("la cantidad a convertir (%s) no coincide con la línea de %s (%s)",
			c.Quantity.String(), src.label(), src.Quantity.String()))
	}
	if c.AdditionalCostPerUnit.IsNegative() {
		return domain.NewValidationError("conversion.additional_cost_per_unit", "no puede ser negativo")
	}
	if !FitsScale(c.AdditionalCostPerUnit) {
		return scaleError("conversion.additional_cost_per_unit", "el costo adicional")
	}
	if c.ProducedProductID != "" && c.ProducedProductID == c.SourceProductID {
		return domain.NewValidationError("conversion.produced_product_id", "origen y producido deben ser distintos")
	}
	return nil
}

func scaleError(field, what string) error {
	return domain.NewValidationError(field, fmt.Sprintf("%s admite máximo %d decimales", what, MaxScale))
}

func labelOf(p ProductSnapshot) string {
	if p.Code != "" {
		return p.Code
	}
	return p.ID
}
