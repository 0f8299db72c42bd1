package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// addAdjustment inserta un lote con una línea directamente en el store.
func (s *memStore) addAdjustment(batchID, productID, warehouseID string, dir entity.Direction, qty int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[batchID]; !ok {
		s.batches[batchID] = &entity.AdjustmentBatch{ID: batchID, Reference: batchID, WarehouseID: warehouseID}
	}
	s.lines = append(s.lines, &entity.AdjustmentLine{
		ID: fmt.Sprintf("%s-%d", batchID, len(s.lines)+1), BatchID: batchID, LineNo: len(s.lines) + 1,
		ProductID: productID, Direction: dir, Quantity: decimal.NewFromInt(qty),
	})
}

func TestResolve_PlegadoDeFuentes(t *testing.T) {
	type ev struct {
		kind string // p, s, a+, a-
		wh   string
		qty  int64
	}
	cases := map[string]struct {
		events []ev
		want   int64
	}{
		"sin eventos":             {nil, 0},
		"solo compras":            {[]ev{{"p", wh, 10}, {"p", wh, 5}}, 15},
		"solo ventas":             {[]ev{{"s", wh, 4}}, -4},
		"solo ajustes":            {[]ev{{"a+", wh, 7}, {"a-", wh, 2}}, 5},
		"mixto":                   {[]ev{{"p", wh, 100}, {"s", wh, 30}, {"a-", wh, 10}, {"a+", wh, 3}}, 63},
		"otra bodega no cuenta":   {[]ev{{"p", wh, 10}, {"p", "OTRA", 99}, {"s", "OTRA", 1}, {"a+", "OTRA", 5}}, 10},
		"sin bodega no cuenta":    {[]ev{{"p", "", 10}, {"s", wh, 3}}, -3},
		"negativo es un hecho":    {[]ev{{"p", wh, 5}, {"s", wh, 8}, {"a-", wh, 1}}, -4},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := newMemStore()
			var purchased, sold, adjusted int64
			for i, e := range tc.events {
				switch e.kind {
				case "p":
					s.addPurchase("P", e.wh, e.qty)
				case "s":
					s.addSale("P", e.wh, e.qty)
				case "a+":
					s.addAdjustment(fmt.Sprintf("b%d", i), "P", e.wh, entity.DirectionAddition, e.qty)
				case "a-":
					s.addAdjustment(fmt.Sprintf("b%d", i), "P", e.wh, entity.DirectionSubtraction, e.qty)
				}
				if e.wh != wh {
					continue
				}
				switch e.kind {
				case "p":
					purchased += e.qty
				case "s":
					sold += e.qty
				case "a+":
					adjusted += e.qty
				case "a-":
					adjusted -= e.qty
				}
			}
			require.Equal(t, tc.want, purchased-sold+adjusted)

			got, err := NewBalanceResolver(memSources{s}).Resolve(context.Background(), "P", wh)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.NewFromInt(tc.want)), "obtenido %s", got)
		})
	}
}

func TestResolveMany_TodoIDPresente(t *testing.T) {
	s := newMemStore()
	s.addPurchase("A", wh, 3)
	r := NewBalanceResolver(memSources{s})

	got, err := r.ResolveMany(context.Background(), []string{"A", "B", "A", " "}, wh)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got["A"].Equal(decimal.NewFromInt(3)))
	assert.True(t, got["B"].IsZero())
}

func TestResolveExcluding_IgnoraLote(t *testing.T) {
	s := newMemStore()
	s.addPurchase("P", wh, 10)
	s.addAdjustment("b1", "P", wh, entity.DirectionSubtraction, 4)
	s.addAdjustment("b2", "P", wh, entity.DirectionAddition, 1)
	r := NewBalanceResolver(memSources{s})

	got, err := r.ResolveExcluding(context.Background(), []string{"P"}, wh, "b1")
	require.NoError(t, err)
	assert.True(t, got["P"].Equal(decimal.NewFromInt(11)))
}

func TestResolve_Validacion(t *testing.T) {
	r := NewBalanceResolver(memSources{newMemStore()})

	_, err := r.Resolve(context.Background(), "", wh)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = r.Resolve(context.Background(), "P", " ")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = r.ResolveMany(context.Background(), nil, wh)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResolve_FallaDeAlmacenamientoSePropaga(t *testing.T) {
	s := newMemStore()
	s.failOn["SumAdjustments"] = fmt.Errorf("%w: timeout", domain.ErrStorageUnavailable)

	_, err := NewBalanceResolver(memSources{s}).Resolve(context.Background(), "P", wh)
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.False(t, errors.Is(err, domain.ErrInvalidInput))
}
