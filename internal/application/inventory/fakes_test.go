package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// memStore base de datos en memoria con transacciones emuladas por snapshot/restore.
type memStore struct {
	mu         sync.Mutex
	products   map[string]*entity.Product
	warehouses map[string]*entity.Warehouse
	batches    map[string]*entity.AdjustmentBatch
	lines      []*entity.AdjustmentLine
	purchases  []*entity.PurchaseLine
	sales      []*entity.SaleLine
	failOn     map[string]error
	calls      []string
	stockLocks [][]repository.StockKey
	// beforeOp se ejecuta (sin lock) antes de la operación indicada; simula otro actor.
	beforeOp map[string]func()
}

func newMemStore() *memStore {
	return &memStore{
		products:   map[string]*entity.Product{},
		warehouses: map[string]*entity.Warehouse{},
		batches:    map[string]*entity.AdjustmentBatch{},
		failOn:     map[string]error{},
		beforeOp:   map[string]func(){},
	}
}

// op registra la llamada y devuelve el error inyectado. Debe llamarse sin el lock tomado.
func (s *memStore) op(name string) error {
	if hook := s.beforeOp[name]; hook != nil {
		delete(s.beforeOp, name)
		hook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	return s.failOn[name]
}

func (s *memStore) resetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
	s.stockLocks = nil
}

// callIndex posición de la primera llamada a name; -1 si no ocurrió.
func (s *memStore) callIndex(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.calls {
		if c == name {
			return i
		}
	}
	return -1
}

func (s *memStore) called(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c == name {
			return true
		}
	}
	return false
}

type memSnapshot struct {
	products  map[string]entity.Product
	batches   map[string]entity.AdjustmentBatch
	lines     []entity.AdjustmentLine
	purchases []*entity.PurchaseLine
	sales     []*entity.SaleLine
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		products:  map[string]entity.Product{},
		batches:   map[string]entity.AdjustmentBatch{},
		purchases: append([]*entity.PurchaseLine(nil), s.purchases...),
		sales:     append([]*entity.SaleLine(nil), s.sales...),
	}
	for k, v := range s.products {
		snap.products[k] = *v
	}
	for k, v := range s.batches {
		snap.batches[k] = *v
	}
	for _, l := range s.lines {
		snap.lines = append(snap.lines, *l)
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = map[string]*entity.Product{}
	for k, v := range snap.products {
		v := v
		s.products[k] = &v
	}
	s.batches = map[string]*entity.AdjustmentBatch{}
	for k, v := range snap.batches {
		v := v
		s.batches[k] = &v
	}
	s.lines = nil
	for _, l := range snap.lines {
		l := l
		s.lines = append(s.lines, &l)
	}
	s.purchases = snap.purchases
	s.sales = snap.sales
}

func (s *memStore) addProduct(id, code string, cost int64) *entity.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &entity.Product{ID: id, Code: code, Name: code, Cost: decimal.NewFromInt(cost)}
	s.products[id] = p
	return p
}

func (s *memStore) addWarehouse(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warehouses[id] = &entity.Warehouse{ID: id, Name: "Bodega " + id}
}

func (s *memStore) addPurchase(productID, warehouseID string, qty int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchases = append(s.purchases, &entity.PurchaseLine{
		ID: fmt.Sprintf("pl-%d", len(s.purchases)+1), ProductID: productID, WarehouseID: warehouseID,
		Quantity: decimal.NewFromInt(qty), Date: time.Now(),
	})
}

func (s *memStore) addSale(productID, warehouseID string, qty int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, &entity.SaleLine{
		ID: fmt.Sprintf("sl-%d", len(s.sales)+1), ProductID: productID, WarehouseID: warehouseID,
		Quantity: decimal.NewFromInt(qty), Date: time.Now(),
	})
}

func (s *memStore) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func (s *memStore) lineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func (s *memStore) productCost(id string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Cost
}

// memTxRunner emula la transacción: si fn falla se restaura el estado previo.
type memTxRunner struct{ s *memStore }

func (r memTxRunner) Run(ctx context.Context, fn func(repository.AdjustmentRepository, repository.StockSourceRepository, repository.ProductRepository) error) error {
	snap := r.s.snapshot()
	if err := r.s.op("Begin"); err != nil {
		return err
	}
	if err := fn(memAdjustments{r.s}, memSources{r.s}, memProducts{r.s}); err != nil {
		r.s.restore(snap)
		return err
	}
	if err := r.s.op("Commit"); err != nil {
		r.s.restore(snap)
		return err
	}
	return nil
}

type memProducts struct{ s *memStore }

func (r memProducts) Create(_ context.Context, p *entity.Product) error {
	if err := r.s.op("CreateProduct"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	r.s.products[p.ID] = &cp
	return nil
}

func (r memProducts) get(id string) *entity.Product {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (r memProducts) GetByID(_ context.Context, id string) (*entity.Product, error) {
	if err := r.s.op("GetProduct"); err != nil {
		return nil, err
	}
	return r.get(id), nil
}

func (r memProducts) GetByCode(_ context.Context, code string) (*entity.Product, error) {
	if err := r.s.op("GetProductByCode"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.products {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memProducts) GetManyByID(_ context.Context, ids []string) (map[string]*entity.Product, error) {
	if err := r.s.op("GetProducts"); err != nil {
		return nil, err
	}
	out := map[string]*entity.Product{}
	for _, id := range ids {
		if p := r.get(id); p != nil {
			out[id] = p
		}
	}
	return out, nil
}

func (r memProducts) GetForUpdate(_ context.Context, id string) (*entity.Product, error) {
	if err := r.s.op("GetProductForUpdate"); err != nil {
		return nil, err
	}
	return r.get(id), nil
}

func (r memProducts) Update(_ context.Context, p *entity.Product) error {
	if err := r.s.op("UpdateProduct"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	r.s.products[p.ID] = &cp
	return nil
}

func (r memProducts) UpdateCost(_ context.Context, id string, cost decimal.Decimal) error {
	if err := r.s.op("UpdateCost"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.products[id]; ok {
		p.Cost = cost
	}
	return nil
}

func (r memProducts) List(context.Context, int, int) ([]*entity.Product, error) { return nil, nil }

func (r memProducts) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.products, id)
	return nil
}

type memWarehouses struct{ s *memStore }

func (r memWarehouses) Create(_ context.Context, w *entity.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *w
	r.s.warehouses[w.ID] = &cp
	return nil
}

func (r memWarehouses) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	if err := r.s.op("GetWarehouse"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.warehouses[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r memWarehouses) Update(context.Context, *entity.Warehouse) error              { return nil }
func (r memWarehouses) List(context.Context, int, int) ([]*entity.Warehouse, error) { return nil, nil }
func (r memWarehouses) Delete(context.Context, string) error                        { return nil }

type memAdjustments struct{ s *memStore }

func (r memAdjustments) CreateBatch(_ context.Context, b *entity.AdjustmentBatch) error {
	if err := r.s.op("CreateBatch"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.batches {
		if other.Reference == b.Reference {
			return domain.ErrDuplicate
		}
	}
	cp := *b
	r.s.batches[b.ID] = &cp
	return nil
}

func (r memAdjustments) GetBatch(_ context.Context, id string) (*entity.AdjustmentBatch, error) {
	if err := r.s.op("GetBatch"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.batches[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r memAdjustments) GetBatchForUpdate(ctx context.Context, id string) (*entity.AdjustmentBatch, error) {
	return r.GetBatch(ctx, id)
}

func (r memAdjustments) UpdateBatch(_ context.Context, b *entity.AdjustmentBatch) error {
	if err := r.s.op("UpdateBatch"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *b
	r.s.batches[b.ID] = &cp
	return nil
}

func (r memAdjustments) DeleteBatch(_ context.Context, id string) error {
	if err := r.s.op("DeleteBatch"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.batches, id)
	kept := r.s.lines[:0]
	for _, l := range r.s.lines {
		if l.BatchID != id {
			kept = append(kept, l)
		}
	}
	r.s.lines = kept
	return nil
}

func (r memAdjustments) ListBatches(_ context.Context, f repository.AdjustmentFilter) ([]*entity.AdjustmentBatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.AdjustmentBatch
	for _, b := range r.s.batches {
		if f.WarehouseID == "" || b.WarehouseID == f.WarehouseID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AdjustedAt.After(out[j].AdjustedAt) })
	return out, nil
}

func (r memAdjustments) CreateLines(_ context.Context, lines []*entity.AdjustmentLine) error {
	if err := r.s.op("CreateLines"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range lines {
		if _, ok := r.s.batches[l.BatchID]; !ok {
			return fmt.Errorf("fk: lote %s inexistente", l.BatchID)
		}
		cp := *l
		r.s.lines = append(r.s.lines, &cp)
	}
	return nil
}

func (r memAdjustments) ListLines(_ context.Context, batchID string) ([]*entity.AdjustmentLine, error) {
	if err := r.s.op("ListLines"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.AdjustmentLine
	for _, l := range r.s.lines {
		if l.BatchID == batchID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineNo < out[j].LineNo })
	return out, nil
}

func (r memAdjustments) DeleteLines(_ context.Context, batchID string) error {
	if err := r.s.op("DeleteLines"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.lines[:0]
	for _, l := range r.s.lines {
		if l.BatchID != batchID {
			kept = append(kept, l)
		}
	}
	r.s.lines = kept
	return nil
}

type memSources struct{ s *memStore }

func wanted(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func (r memSources) SumPurchases(_ context.Context, warehouseID string, ids []string) (map[string]decimal.Decimal, error) {
	if err := r.s.op("SumPurchases"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w := wanted(ids)
	out := map[string]decimal.Decimal{}
	for _, p := range r.s.purchases {
		if p.WarehouseID != "" && p.WarehouseID == warehouseID && w[p.ProductID] {
			out[p.ProductID] = out[p.ProductID].Add(p.Quantity)
		}
	}
	return out, nil
}

func (r memSources) SumSales(_ context.Context, warehouseID string, ids []string) (map[string]decimal.Decimal, error) {
	if err := r.s.op("SumSales"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w := wanted(ids)
	out := map[string]decimal.Decimal{}
	for _, sl := range r.s.sales {
		if sl.WarehouseID != "" && sl.WarehouseID == warehouseID && w[sl.ProductID] {
			out[sl.ProductID] = out[sl.ProductID].Add(sl.Quantity)
		}
	}
	return out, nil
}

func (r memSources) SumAdjustments(_ context.Context, warehouseID string, ids []string, excludeBatchID string) (map[string]decimal.Decimal, error) {
	if err := r.s.op("SumAdjustments"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w := wanted(ids)
	out := map[string]decimal.Decimal{}
	for _, l := range r.s.lines {
		b, ok := r.s.batches[l.BatchID]
		if !ok || b.WarehouseID != warehouseID || l.BatchID == excludeBatchID || !w[l.ProductID] {
			continue
		}
		out[l.ProductID] = out[l.ProductID].Add(l.SignedQuantity())
	}
	return out, nil
}

func (r memSources) LockBalances(_ context.Context, keys []repository.StockKey) error {
	if err := r.s.op("LockBalances"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stockLocks = append(r.s.stockLocks, append([]repository.StockKey(nil), keys...))
	return nil
}

// memAudit grabador de auditoría en memoria con falla opcional.
type memAudit struct {
	mu      sync.Mutex
	entries []*entity.AuditLogEntry
	fail    error
}

func (a *memAudit) Record(_ context.Context, actorID string, action entity.AuditAction, resourceType, resourceID string, _, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail != nil {
		return &domain.AuditWriteFailureError{ResourceType: resourceType, ResourceID: resourceID, Err: a.fail}
	}
	a.entries = append(a.entries, &entity.AuditLogEntry{
		ResourceType: resourceType, ResourceID: resourceID, ActorID: actorID, Action: action,
	})
	return nil
}

func (a *memAudit) byResource(resourceType, resourceID string) []*entity.AuditLogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*entity.AuditLogEntry
	for _, e := range a.entries {
		if e.ResourceType == resourceType && e.ResourceID == resourceID {
			out = append(out, e)
		}
	}
	return out
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func (m *memIdempotency) Claim(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type stubLocker struct {
	err      error
	locked   [][]string
	released int
}

func (l *stubLocker) Lock(_ context.Context, keys []string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locked = append(l.locked, keys)
	return func() { l.released++ }, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	audits   int
}

func (o *recordingObserver) ObserveCommit(op, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, op+":"+outcome)
}

func (o *recordingObserver) ObserveAuditFailure(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.audits++
}
