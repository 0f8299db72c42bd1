package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApplyDirection(t *testing.T) {
	assert.True(t, ApplyDirection(d("100"), entity.DirectionSubtraction, d("30")).Equal(d("70")))
	assert.True(t, ApplyDirection(d("5"), entity.DirectionAddition, d("2.5")).Equal(d("7.5")))
	assert.True(t, ApplyDirection(d("1"), entity.DirectionSubtraction, d("3")).Equal(d("-2")), "el saldo negativo es representable")
}

func TestConversionUnitCost_NoPromedia(t *testing.T) {
	assert.True(t, ConversionUnitCost(d("80"), d("15")).Equal(d("95")))
	assert.True(t, ConversionUnitCost(d("80"), decimal.Zero).Equal(d("80")))
}

func TestBalanceSources(t *testing.T) {
	s := BalanceSources{Purchased: d("100"), Sold: d("20"), Adjusted: d("-30")}
	assert.True(t, s.Balance().Equal(d("50")))
	assert.True(t, BalanceSources{}.Balance().IsZero())
}

func TestFitsScale(t *testing.T) {
	assert.True(t, FitsScale(decimal.RequireFromString("12.3456")))
	assert.True(t, FitsScale(decimal.RequireFromString("7.10000")))
	assert.True(t, FitsScale(decimal.NewFromInt(-3)))
	assert.False(t, FitsScale(decimal.RequireFromString("0.12345")))
	assert.False(t, FitsScale(decimal.RequireFromString("-0.00001")))
}
