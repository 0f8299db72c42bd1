package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
	"github.com/jhoicas/stockledger-api/pkg/logger"
)

func TestParseProducts_Windows1252(t *testing.T) {
	src := "code;name;unit_measure;price;cost\nPOLLO;Pollo marinado ñandú;kg;1.250,50;80\n"
	encoded, err := charmap.Windows1252.NewEncoder().String(src)
	require.NoError(t, err)

	rows, err := parseProducts(bytes.NewBufferString(encoded), "windows-1252")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Pollo marinado ñandú", rows[0].Name)
	assert.True(t, rows[0].Price.Equal(decimal.RequireFromString("1250.50")))
	assert.True(t, rows[0].Cost.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, "kg", rows[0].UnitMeasure)
}

func TestParseProducts_UTF8ConComaYBOM(t *testing.T) {
	rows, err := parseProducts(strings.NewReader("\ufeffcode,name,cost\nARROZ,Arroz,10\n"), "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ARROZ", rows[0].Code)
	assert.Equal(t, "unit", rows[0].UnitMeasure)
	assert.True(t, rows[0].Price.IsZero())
}

func TestParseErrores(t *testing.T) {
	_, err := parseProducts(strings.NewReader("name\nArroz\n"), "")
	assert.ErrorContains(t, err, `"code"`)

	_, err = parseProducts(strings.NewReader("code,name,cost\nA,Arroz,-1\n"), "")
	assert.Error(t, err)

	_, err = parsePurchases(strings.NewReader("product_code,warehouse_id,quantity\nA,W,0\n"), "")
	assert.ErrorContains(t, err, "positiva")

	_, err = parsePurchases(strings.NewReader("product_code,warehouse_id,quantity,date\nA,W,1,01/02/2026\n"), "")
	assert.ErrorContains(t, err, "date")

	_, err = parseWarehouses(strings.NewReader("id,name\n"), "ebcdic")
	assert.ErrorContains(t, err, "codificación")
}

func TestParsePurchases_ReferenciaPorDefecto(t *testing.T) {
	rows, err := parsePurchases(strings.NewReader("product_code;warehouse_id;quantity;unit_cost;date\nA;W;100;10;2026-01-15\n"), "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SEED-2", rows[0].Reference)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.True(t, rows[0].Quantity.Equal(decimal.NewFromInt(100)))
}

type memWarehouses struct {
	repository.WarehouseRepository
	byID map[string]*entity.Warehouse
}

func (m *memWarehouses) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	return m.byID[id], nil
}

func (m *memWarehouses) Create(_ context.Context, w *entity.Warehouse) error {
	m.byID[w.ID] = w
	return nil
}

type memProducts struct {
	repository.ProductRepository
	byCode map[string]*entity.Product
}

func (m *memProducts) GetByCode(_ context.Context, code string) (*entity.Product, error) {
	return m.byCode[code], nil
}

func (m *memProducts) Create(_ context.Context, p *entity.Product) error {
	m.byCode[p.Code] = p
	return nil
}

type memEvents struct {
	repository.StockEventRepository
	purchases []*entity.PurchaseLine
}

func (m *memEvents) CreatePurchaseLine(_ context.Context, l *entity.PurchaseLine) error {
	m.purchases = append(m.purchases, l)
	return nil
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestSeeder_Run(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "warehouses.csv", "id,name,address\nW1,Principal,Calle 1\nW2,Norte,\n")
	writeFile(t, dir, "products.csv", "code,name,cost\nARROZ,Arroz,10\nPOLLO,Pollo,80\n")
	writeFile(t, dir, "purchases.csv", "reference,product_code,warehouse_id,quantity,unit_cost\nC-1,ARROZ,W1,100,10\nC-2,POLLO,W1,20,80\n")

	existing := &entity.Product{ID: "p-pollo", Code: "POLLO", Name: "Pollo"}
	wh := &memWarehouses{byID: map[string]*entity.Warehouse{"W2": {ID: "W2", Name: "Norte"}}}
	prods := &memProducts{byCode: map[string]*entity.Product{"POLLO": existing}}
	events := &memEvents{}
	s := &seeder{warehouses: wh, products: prods, events: events, log: logger.Nop(), now: time.Now}

	st, err := s.run(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, seedStats{warehouses: 1, products: 1, purchases: 2}, st)

	require.Len(t, events.purchases, 2)
	assert.Equal(t, prods.byCode["ARROZ"].ID, events.purchases[0].ProductID)
	assert.Equal(t, "p-pollo", events.purchases[1].ProductID, "usa el producto existente")
	assert.Equal(t, "W1", events.purchases[0].WarehouseID)
}

type recordedAudit struct {
	actor        string
	action       entity.AuditAction
	resourceType string
	resourceID   string
	values       map[string]any
}

type memRecorder struct {
	entries []recordedAudit
	err     error
}

func (m *memRecorder) Record(_ context.Context, actorID string, action entity.AuditAction, resourceType, resourceID string, _, newValues map[string]any) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, recordedAudit{actorID, action, resourceType, resourceID, newValues})
	return nil
}

func TestSeeder_AuditaCadaAlta(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "warehouses.csv", "id,name\nW1,Principal\n")
	writeFile(t, dir, "products.csv", "code,name,cost\nARROZ,Arroz,10\n")
	writeFile(t, dir, "purchases.csv", "reference,product_code,warehouse_id,quantity\nC-1,ARROZ,W1,100\n")

	rec := &memRecorder{}
	events := &memEvents{}
	s := &seeder{
		warehouses: &memWarehouses{byID: map[string]*entity.Warehouse{}},
		products:   &memProducts{byCode: map[string]*entity.Product{}},
		events:     events,
		audit:      rec,
		actor:      "seed",
		log:        logger.Nop(),
		now:        time.Now,
	}
	_, err := s.run(context.Background(), dir, "")
	require.NoError(t, err)

	require.Len(t, rec.entries, 3)
	for _, e := range rec.entries {
		assert.Equal(t, "seed", e.actor)
		assert.Equal(t, entity.AuditCreate, e.action)
	}
	assert.Equal(t, entity.ResourceWarehouse, rec.entries[0].resourceType)
	assert.Equal(t, entity.ResourceProduct, rec.entries[1].resourceType)
	purchase := rec.entries[2]
	assert.Equal(t, entity.ResourcePurchase, purchase.resourceType)
	assert.Equal(t, events.purchases[0].ID, purchase.resourceID)
	assert.Equal(t, "C-1", purchase.values["reference"])
	assert.Equal(t, "W1", purchase.values["warehouse_id"])
}

func TestSeeder_FallaDeAuditoriaNoDetieneLaCarga(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "warehouses.csv", "id,name\nW1,Principal\n")

	s := &seeder{
		warehouses: &memWarehouses{byID: map[string]*entity.Warehouse{}},
		audit:      &memRecorder{err: errors.New("audit_logs no disponible")},
		actor:      "seed",
		log:        logger.Nop(),
		now:        time.Now,
	}
	st, err := s.run(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, 1, st.warehouses)
}

func TestSeeder_CompraDeProductoInexistente(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "purchases.csv", "product_code,warehouse_id,quantity\nNOPE,W1,1\n")

	s := &seeder{
		warehouses: &memWarehouses{byID: map[string]*entity.Warehouse{}},
		products:   &memProducts{byCode: map[string]*entity.Product{}},
		events:     &memEvents{},
		log:        logger.Nop(),
		now:        time.Now,
	}
	_, err := s.run(context.Background(), dir, "")
	assert.ErrorContains(t, err, "NOPE")
}

func TestSeeder_DirectorioVacio(t *testing.T) {
	s := &seeder{log: logger.Nop(), now: time.Now}
	st, err := s.run(context.Background(), t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, seedStats{}, st)
}
