package inventory

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

var (
	harina = ProductSnapshot{ID: "p-harina", Code: "HARINA", Name: "Harina", Cost: decimal.NewFromInt(3)}
	azucar = ProductSnapshot{ID: "p-azucar", Code: "AZUCAR", Name: "Azúcar", Cost: decimal.NewFromInt(2)}
	pollo  = ProductSnapshot{ID: "p-pollo", Code: "CHICKEN", Name: "Chicken", Cost: decimal.NewFromInt(80)}
)

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve), "se esperaba ValidationError, llegó %v", err)
	assert.Equal(t, field, ve.Field)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDraft_AddLine_CalculaAfterYTotal(t *testing.T) {
	b := NewDraftBatch("w1", entity.ReasonStockAdjustment, "")
	require.NoError(t, b.AddLine(harina, d("100"), entity.DirectionSubtraction, d("30")))

	l, ok := b.Line(harina.ID)
	require.True(t, ok)
	assert.True(t, l.BeforeStock.Equal(d("100")))
	assert.True(t, l.AfterStock.Equal(d("70")))
	assert.True(t, l.UnitCost.Equal(d("3")), "unit_cost por defecto = costo vigente")
	assert.True(t, l.TotalCost.Equal(d("90")))
}

func TestDraft_AddLine_RechazaDuplicado(t *testing.T) {
	b := NewDraftBatch("w1", entity.ReasonStockAdjustment, "")
	require.NoError(t, b.AddLine(harina, d("10"), entity.DirectionAddition, d("1")))
	requireValidation(t, b.AddLine(harina, d("10"), entity.DirectionAddition, d("2")), "product_id")
	assert.Len(t, b.Lines, 1)
}

func TestDraft_AddLine_CantidadNegativa(t *testing.T) {
	b := NewDraftBatch("w1", entity.ReasonStockAdjustment, "")
	err := b.AddLine(harina, d("10"), entity.DirectionAddition, d("-1"))
	requireValidation(t, err, "quantity")
	assert.Contains(t, err.Error(), "HARINA")
}

func TestDraft_EdicionesRecalculan(t *testing.T) {
	b := NewDraftBatch("w1", entity.ReasonStockAdjustment, "")
	require.NoError(t, b.AddLine(harina, d("10"), entity.DirectionAddition, d("5")))

	require.NoError(t, b.SetQuantity(harina.ID, d("8")))
	l, _ := b.Line(harina.ID)
	assert.True(t, l.AfterStock.Equal(d("18")))
	assert.True(t, l.TotalCost.Equal(d("24")))

	require.NoError(t, b.SetUnitCost(harina.ID, d("4.5")))
	l, _ = b.Line(harina.ID)
	assert.True(t, l.TotalCost.Equal(d("36")))

	require.NoError(t, b.SetDirection(harina.ID, entity.DirectionSubtraction))
	l, _ = b.Line(harina.ID)
	assert.True(t, l.AfterStock.Equal(d("2")))

	b.RefreshBalance(harina.ID, d("1"))
	l, _ = b.Line(harina.ID)
	assert.True(t, l.AfterStock.Equal(d("-7")))

	require.NoError(t, b.RemoveLine(harina.ID))
	assert.Empty(t, b.Lines)
	requireValidation(t, b.RemoveLine(harina.ID), "product_id")
}

func TestDraft_Validate(t *testing.T) {
	cases := []struct {
		name  string
		build func() *DraftBatch
		field string
	}{
		{"sin bodega", func() *DraftBatch {
			b := NewDraftBatch("", entity.ReasonStockAdjustment, "")
			_ = b.AddLine(harina, d("1"), entity.DirectionAddition, d("1"))
			return b
		}, "warehouse_id"},
		{"sin líneas", func() *DraftBatch { return NewDraftBatch("w1", entity.ReasonStockAdjustment, "") }, "lines"},
		{"motivo desconocido", func() *DraftBatch {
			b := NewDraftBatch("w1", "Robo", "")
			_ = b.AddLine(harina, d("1"), entity.DirectionAddition, d("1"))
			return b
		}, "reason"},
		{"other sin nota", func() *DraftBatch {
			b := NewDraftBatch("w1", entity.ReasonOther, "  ")
			_ = b.AddLine(harina, d("1"), entity.DirectionAddition, d("1"))
			return b
		}, "reason_note"},
		{"cantidad negativa manipulada", func() *DraftBatch {
			b := NewDraftBatch("w1", entity.ReasonStockAdjustment, "")
			_ = b.AddLine(harina, d("1"), entity.DirectionAddition, d("1"))
			b.Lines[0].Quantity = d("-2")
			return b
		}, "lines[0].quantity"},
		{"producto repetido manipulado", func() *DraftBatch {
			b := NewDraftBatch("w1", entity.ReasonStockAdjustment, "")
			_ = b.AddLine(harina, d("1"), entity.DirectionAddition, d("1"))
			b.Lines = append(b.Lines, b.Lines[0])
			return b
		}, "lines[1].product_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requireValidation(t, tc.build().Validate(), tc.field)
		})
	}
}

func TestDraft_Validate_RecalculaEstadoDelCliente(t *testing.T) {
	b := NewDraftBatch("w1", entity.ReasonStockAdjustment, "")
	require.NoError(t, b.AddLine(harina, d("100"), entity.DirectionSubtraction, d("30")))
	require.NoError(t, b.AddLine(azucar, d("0"), entity.DirectionAddition, d("4")))
	b.Lines[0].AfterStock = d("999")
	b.Lines[1].TotalCost = d("0")

	require.NoError(t, b.Validate())
	assert.True(t, b.Lines[0].AfterStock.Equal(d("70")))
	assert.True(t, b.Lines[1].TotalCost.Equal(d("8")))
}

func TestDraft_Conversion(t *testing.T) {
	b := NewDraftBatch("w1", entity.ReasonProduction, "")
	requireValidation(t, b.AddLine(harina, d("1"), entity.DirectionAddition, d("1")), "reason")

	require.NoError(t, b.SelectConversionSource(pollo, d("50"), d("10")))
	require.NoError(t, b.SetAdditionalCost(d("15")))
	require.Len(t, b.Lines, 1)
	assert.Equal(t, entity.DirectionSubtraction, b.Lines[0].Direction)
	assert.True(t, b.Lines[0].AfterStock.Equal(d("40")))

	// reemplaza la selección anterior: siempre una sola línea origen
	require.NoError(t, b.SelectConversionSource(harina, d("5"), d("2")))
	require.Len(t, b.Lines, 1)
	assert.Equal(t, harina.ID, b.Conversion.SourceProductID)

	require.NoError(t, b.SetConversionQuantity(d("3")))
	assert.True(t, b.Conversion.Quantity.Equal(d("3")))
	assert.True(t, b.Lines[0].Quantity.Equal(d("3")))

	requireValidation(t, b.SetDirection(harina.ID, entity.DirectionAddition), "direction")
	requireValidation(t, b.SetAdditionalCost(d("-1")), "conversion.additional_cost_per_unit")
	requireValidation(t, b.SetProducedProduct(harina.ID), "conversion.produced_product_id")
	require.NoError(t, b.Validate())
}

func TestDraft_Conversion_ValidateSinOrigen(t *testing.T) {
	b := NewDraftBatch("w1", entity.ReasonProduction, "")
	requireValidation(t, b.Validate(), "lines")

	b.Lines = []DraftLine{{ProductID: pollo.ID, Direction: entity.DirectionSubtraction, Quantity: d("1")}}
	requireValidation(t, b.Validate(), "conversion.source_product_id")
}

func TestDraft_Conversion_CantidadDesincronizada(t *testing.T) {
	b := NewDraftBatch("w1", entity.ReasonProduction, "")
	require.NoError(t, b.SelectConversionSource(pollo, d("50"), d("10")))
	b.Conversion.Quantity = d("11")
	requireValidation(t, b.Validate(), "conversion.quantity")
}

func TestDraft_CloneYJSON(t *testing.T) {
	b := NewDraftBatch("w1", entity.ReasonProduction, "")
	require.NoError(t, b.SelectConversionSource(pollo, d("50"), d("10")))

	c := b.Clone()
	c.Lines[0].Quantity = d("1")
	c.Conversion.AdditionalCostPerUnit = d("9")
	assert.True(t, b.Lines[0].Quantity.Equal(d("10")), "el clon no comparte líneas")
	assert.True(t, b.Conversion.AdditionalCostPerUnit.IsZero(), "el clon no comparte la conversión")

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	var back DraftBatch
	require.NoError(t, json.Unmarshal(raw, &back))
	require.NoError(t, back.Validate())
	assert.Equal(t, pollo.ID, back.Conversion.SourceProductID)
}

func TestDraft_EscalaMaximaDeDecimales(t *testing.T) {
	t.Run("AddLine", func(t *testing.T) {
		b := NewDraftBatch("w1", entity.ReasonStockAdjustment, "")
		err := b.AddLine(harina, d("10"), entity.DirectionSubtraction, d("0.12345"))
		requireValidation(t, err, "quantity")
		assert.Contains(t, err.Error(), "HARINA")
		assert.Empty(t, b.Lines)
		requireValidation(t, b.AddLine(harina, d("10"), entity.DirectionSubtraction, d("0.00001")), "quantity")
	})
	t.Run("cuatro decimales y ceros de sobra pasan", func(t *testing.T) {
		b := NewDraftBatch("w1", entity.ReasonStockAdjustment, "")
		require.NoError(t, b.AddLine(harina, d("10"), entity.DirectionSubtraction, d("0.1234")))
		require.NoError(t, b.SetQuantity(harina.ID, d("1.500000")))
		require.NoError(t, b.Validate())
	})
	t.Run("SetQuantity y SetUnitCost", func(t *testing.T) {
		b := NewDraftBatch("w1", entity.ReasonStockAdjustment, "")
		require.NoError(t, b.AddLine(harina, d("10"), entity.DirectionAddition, d("1")))
		requireValidation(t, b.SetQuantity(harina.ID, d("2.00001")), "quantity")
		requireValidation(t, b.SetUnitCost(harina.ID, d("3.14159")), "unit_cost")
		l, _ := b.Line(harina.ID)
		assert.True(t, l.Quantity.Equal(d("1")))
		assert.True(t, l.UnitCost.Equal(d("3")))
	})
	t.Run("Validate nombra la línea", func(t *testing.T) {
		b := NewDraftBatch("w1", entity.ReasonStockAdjustment, "")
		require.NoError(t, b.AddLine(azucar, d("5"), entity.DirectionAddition, d("1")))
		require.NoError(t, b.AddLine(harina, d("10"), entity.DirectionSubtraction, d("1")))
		b.Lines[1].Quantity = d("0.12345")
		requireValidation(t, b.Validate(), "lines[1].quantity")

		b.Lines[1].Quantity = d("1")
		b.Lines[1].UnitCost = d("0.00001")
		requireValidation(t, b.Validate(), "lines[1].unit_cost")
	})
	t.Run("conversión", func(t *testing.T) {
		b := NewDraftBatch("w1", entity.ReasonProduction, "")
		requireValidation(t, b.SelectConversionSource(pollo, d("50"), d("1.23456")), "conversion.quantity")
		require.NoError(t, b.SelectConversionSource(pollo, d("50"), d("2")))
		requireValidation(t, b.SetAdditionalCost(d("0.55555")), "conversion.additional_cost_per_unit")

		b.Conversion.AdditionalCostPerUnit = d("0.55555")
		requireValidation(t, b.Validate(), "conversion.additional_cost_per_unit")
	})
}
