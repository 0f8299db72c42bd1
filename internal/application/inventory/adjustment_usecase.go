package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	inv "github.com/jhoicas/stockledger-api/internal/domain/inventory"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
	"github.com/jhoicas/stockledger-api/pkg/logger"
)

// Operaciones y resultados reportados al CommitObserver.
const (
	OpCommit = "commit"
	OpEdit   = "edit"
	OpDelete = "delete"

	OutcomeOK                = "ok"
	OutcomeValidation        = "validation"
	OutcomeConflict          = "conflict"
	OutcomeConversionMissing = "conversion_missing"
	OutcomeNotFound          = "not_found"
	OutcomeStorage           = "storage"
	OutcomeError             = "error"
)

// LedgerPolicy reglas configurables del libro.
type LedgerPolicy struct {
	AllowNegativeStock bool
	RejectAnyDrift     bool
	// ConversionRules código origen → código producido, usado cuando la conversión no nombra el producido.
	ConversionRules map[string]string
}

// AdjustmentDeps dependencias del orquestador de ajustes.
type AdjustmentDeps struct {
	TxRunner    TxRunner
	Warehouses  repository.WarehouseRepository
	Products    repository.ProductRepository
	Adjustments repository.AdjustmentRepository
	Audit       AuditRecorder
	Locker      StockLocker      // nil: NoopLocker
	Idempotency IdempotencyStore // nil: sin control de Idempotency-Key
	Observer    CommitObserver   // nil: sin métricas
	Logger      *logger.Logger   // nil: logger.Nop()
	Policy      LedgerPolicy
	Clock       func() time.Time
}

// AdjustmentUseCase orquesta commit, edición y borrado de lotes de ajuste de forma transaccional.
type AdjustmentUseCase struct {
	tx          TxRunner
	warehouses  repository.WarehouseRepository
	products    repository.ProductRepository
	adjustments repository.AdjustmentRepository
	audit       AuditRecorder
	locker      StockLocker
	idem        IdempotencyStore
	observer    CommitObserver
	log         *logger.Logger
	policy      LedgerPolicy
	now         func() time.Time
}

// NewAdjustmentUseCase construye el caso de uso.
func NewAdjustmentUseCase(deps AdjustmentDeps) *AdjustmentUseCase {
	uc := &AdjustmentUseCase{
		tx:          deps.TxRunner,
		warehouses:  deps.Warehouses,
		products:    deps.Products,
		adjustments: deps.Adjustments,
		audit:       deps.Audit,
		locker:      deps.Locker,
		idem:        deps.Idempotency,
		observer:    deps.Observer,
		log:         deps.Logger,
		policy:      deps.Policy,
		now:         deps.Clock,
	}
	if uc.locker == nil {
		uc.locker = NoopLocker{}
	}
	if uc.observer == nil {
		uc.observer = nopObserver{}
	}
	if uc.log == nil {
		uc.log = logger.Nop()
	}
	if uc.now == nil {
		uc.now = time.Now
	}
	return uc
}

// conversionPlan productos resueltos de una conversión antes de abrir la transacción.
type conversionPlan struct {
	source     *entity.Product
	producedID string
}

// Commit confirma un borrador como lote nuevo en una sola transacción.
// idempotencyKey vacío desactiva el control de duplicados.
func (uc *AdjustmentUseCase) Commit(ctx context.Context, actorID string, draft *inv.DraftBatch, idempotencyKey string) (*dto.AdjustmentBatchResponse, error) {
	start := uc.now()
	out, err := uc.commit(ctx, actorID, draft, idempotencyKey)
	uc.observer.ObserveCommit(OpCommit, outcomeOf(err), uc.now().Sub(start))
	return out, err
}

func (uc *AdjustmentUseCase) commit(ctx context.Context, actorID string, draft *inv.DraftBatch, idempotencyKey string) (_ *dto.AdjustmentBatchResponse, err error) {
	d, products, plan, err := uc.prepare(ctx, actorID, draft)
	if err != nil {
		return nil, err
	}

	if idempotencyKey != "" && uc.idem != nil {
		claimed, cerr := uc.idem.Claim(ctx, idempotencyKey)
		switch {
		case cerr != nil:
			uc.log.Warn().Err(cerr).Str("idempotency_key", idempotencyKey).Msg("idempotencia no disponible, se continúa sin control")
		case !claimed:
			return nil, fmt.Errorf("%w: Idempotency-Key %s ya fue usada", domain.ErrDuplicateRequest, idempotencyKey)
		default:
			defer func() {
				if err != nil {
					if rerr := uc.idem.Release(context.WithoutCancel(ctx), idempotencyKey); rerr != nil {
						uc.log.Warn().Err(rerr).Str("idempotency_key", idempotencyKey).Msg("liberar Idempotency-Key")
					}
				}
			}()
		}
	}

	release, err := uc.lock(ctx, d.WarehouseID, d.ProductIDs(), producedIDs(plan))
	if err != nil {
		return nil, err
	}
	defer release()

	now := uc.now().UTC()
	batch := &entity.AdjustmentBatch{
		ID:          uuid.New().String(),
		Reference:   strings.TrimSpace(d.Reference),
		WarehouseID: d.WarehouseID,
		Reason:      d.Reason,
		ReasonNote:  strings.TrimSpace(d.ReasonNote),
		AdjustedBy:  actorID,
		AdjustedAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if batch.Reference == "" {
		batch.Reference = NewReference(now)
	}
	if d.Conversion != nil {
		batch.AdditionalCostPerUnit = d.Conversion.AdditionalCostPerUnit
	}

	var result *derivation
	err = uc.tx.Run(ctx, func(adjRepo repository.AdjustmentRepository, sourceRepo repository.StockSourceRepository, productRepo repository.ProductRepository) error {
		if err := sourceRepo.LockBalances(ctx, stockKeys(d.WarehouseID, d.ProductIDs(), producedIDs(plan))); err != nil {
			return fmt.Errorf("bloquear saldos: %w", err)
		}
		if err := adjRepo.CreateBatch(ctx, batch); err != nil {
			return fmt.Errorf("crear lote: %w", err)
		}
		res, err := uc.deriveAndPersist(ctx, adjRepo, sourceRepo, productRepo, batch, d, products, plan)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		uc.logFailure(err, OpCommit, batch.ID, d.WarehouseID, actorID)
		return nil, err
	}

	uc.log.Info().
		Str("batch_id", batch.ID).
		Str("reference", batch.Reference).
		Str("warehouse_id", batch.WarehouseID).
		Str("actor_id", actorID).
		Int("lines", len(result.lines)).
		Msg("lote de ajuste confirmado")

	warnings := uc.recordAudit(ctx, actorID, entity.AuditCreate, entity.ResourceAdjustmentBatch, batch.ID,
		nil, batchAuditValues(batch, result.lines, products))
	warnings = append(warnings, uc.recordCostRollup(ctx, actorID, result)...)
	return toBatchResponse(batch, result.lines, products, warnings), nil
}

// Edit re-deriva un lote existente: borra sus líneas, actualiza la cabecera, re-resuelve
// saldos y reinserta, todo en una transacción.
func (uc *AdjustmentUseCase) Edit(ctx context.Context, actorID, batchID string, draft *inv.DraftBatch) (*dto.AdjustmentBatchResponse, error) {
	start := uc.now()
	out, err := uc.edit(ctx, actorID, batchID, draft)
	uc.observer.ObserveCommit(OpEdit, outcomeOf(err), uc.now().Sub(start))
	return out, err
}

func (uc *AdjustmentUseCase) edit(ctx context.Context, actorID, batchID string, draft *inv.DraftBatch) (*dto.AdjustmentBatchResponse, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, domain.NewValidationError("id", "requerido")
	}
	// el borrador de edición trae saldos que excluyen las líneas de este lote
	if draft != nil && draft.BatchID != batchID {
		return nil, domain.NewValidationError("batch_id", fmt.Sprintf("el borrador no fue construido para el lote %s", batchID))
	}
	d, products, plan, err := uc.prepare(ctx, actorID, draft)
	if err != nil {
		return nil, err
	}
	current, err := uc.adjustments.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("obtener lote: %w", err)
	}
	if current == nil {
		return nil, fmt.Errorf("%w: lote %s", domain.ErrNotFound, batchID)
	}
	oldLines, err := uc.adjustments.ListLines(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("listar líneas: %w", err)
	}
	oldProductIDs := lineProductIDs(oldLines)

	// las líneas previas también mueven saldos: se bloquean junto con las nuevas
	lockSets := [][]string{d.ProductIDs(), producedIDs(plan)}
	if current.WarehouseID == d.WarehouseID {
		lockSets = append(lockSets, oldProductIDs)
	}
	release, err := uc.lock(ctx, d.WarehouseID, lockSets...)
	if err != nil {
		return nil, err
	}
	defer release()
	if current.WarehouseID != d.WarehouseID {
		releaseOld, err := uc.lock(ctx, current.WarehouseID, oldProductIDs)
		if err != nil {
			return nil, err
		}
		defer releaseOld()
	}

	var (
		before   map[string]any
		batch    *entity.AdjustmentBatch
		result   *derivation
		allProds = products
	)
	err = uc.tx.Run(ctx, func(adjRepo repository.AdjustmentRepository, sourceRepo repository.StockSourceRepository, productRepo repository.ProductRepository) error {
		locked, err := adjRepo.GetBatchForUpdate(ctx, batchID)
		if err != nil {
			return fmt.Errorf("bloquear lote: %w", err)
		}
		if locked == nil {
			return fmt.Errorf("%w: lote %s", domain.ErrNotFound, batchID)
		}
		prevLines, err := adjRepo.ListLines(ctx, batchID)
		if err != nil {
			return fmt.Errorf("listar líneas: %w", err)
		}
		// saldos de las líneas previas y de las nuevas, en una sola toma ordenada
		keys := append(stockKeys(locked.WarehouseID, lineProductIDs(prevLines)),
			stockKeys(d.WarehouseID, d.ProductIDs(), producedIDs(plan))...)
		if err := sourceRepo.LockBalances(ctx, keys); err != nil {
			return fmt.Errorf("bloquear saldos: %w", err)
		}
		before = batchAuditValues(locked, prevLines, allProds)

		if err := adjRepo.DeleteLines(ctx, batchID); err != nil {
			return fmt.Errorf("borrar líneas: %w", err)
		}
		updated := *locked
		if ref := strings.TrimSpace(d.Reference); ref != "" {
			updated.Reference = ref
		}
		updated.WarehouseID = d.WarehouseID
		updated.Reason = d.Reason
		updated.ReasonNote = strings.TrimSpace(d.ReasonNote)
		updated.AdditionalCostPerUnit = decimal.Zero
		if d.Conversion != nil {
			updated.AdditionalCostPerUnit = d.Conversion.AdditionalCostPerUnit
		}
		updated.AdjustedBy = actorID
		updated.AdjustedAt = uc.now().UTC()
		updated.UpdatedAt = updated.AdjustedAt
		if err := adjRepo.UpdateBatch(ctx, &updated); err != nil {
			return fmt.Errorf("actualizar lote: %w", err)
		}
		res, err := uc.deriveAndPersist(ctx, adjRepo, sourceRepo, productRepo, &updated, d, products, plan)
		if err != nil {
			return err
		}
		batch = &updated
		result = res
		return nil
	})
	if err != nil {
		uc.logFailure(err, OpEdit, batchID, d.WarehouseID, actorID)
		return nil, err
	}

	uc.log.Info().
		Str("batch_id", batch.ID).
		Str("warehouse_id", batch.WarehouseID).
		Str("actor_id", actorID).
		Int("lines", len(result.lines)).
		Msg("lote de ajuste editado")

	warnings := uc.recordAudit(ctx, actorID, entity.AuditUpdate, entity.ResourceAdjustmentBatch, batch.ID,
		before, batchAuditValues(batch, result.lines, products))
	warnings = append(warnings, uc.recordCostRollup(ctx, actorID, result)...)
	return toBatchResponse(batch, result.lines, products, warnings), nil
}

// Delete elimina un lote y, en cascada, sus líneas. El costo ya trasladado por una conversión no se revierte.
func (uc *AdjustmentUseCase) Delete(ctx context.Context, actorID, batchID string) (*dto.DeleteAdjustmentResponse, error) {
	start := uc.now()
	out, err := uc.delete(ctx, actorID, batchID)
	uc.observer.ObserveCommit(OpDelete, outcomeOf(err), uc.now().Sub(start))
	return out, err
}

func (uc *AdjustmentUseCase) delete(ctx context.Context, actorID, batchID string) (*dto.DeleteAdjustmentResponse, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, domain.NewValidationError("actor_id", "requerido")
	}
	if strings.TrimSpace(batchID) == "" {
		return nil, domain.NewValidationError("id", "requerido")
	}
	current, err := uc.adjustments.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("obtener lote: %w", err)
	}
	if current == nil {
		return nil, fmt.Errorf("%w: lote %s", domain.ErrNotFound, batchID)
	}
	lines, err := uc.adjustments.ListLines(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("listar líneas: %w", err)
	}
	release, err := uc.lock(ctx, current.WarehouseID, lineProductIDs(lines))
	if err != nil {
		return nil, err
	}
	defer release()

	var before map[string]any
	err = uc.tx.Run(ctx, func(adjRepo repository.AdjustmentRepository, sourceRepo repository.StockSourceRepository, _ repository.ProductRepository) error {
		locked, err := adjRepo.GetBatchForUpdate(ctx, batchID)
		if err != nil {
			return fmt.Errorf("bloquear lote: %w", err)
		}
		if locked == nil {
			return fmt.Errorf("%w: lote %s", domain.ErrNotFound, batchID)
		}
		prevLines, err := adjRepo.ListLines(ctx, batchID)
		if err != nil {
			return fmt.Errorf("listar líneas: %w", err)
		}
		if err := sourceRepo.LockBalances(ctx, stockKeys(locked.WarehouseID, lineProductIDs(prevLines))); err != nil {
			return fmt.Errorf("bloquear saldos: %w", err)
		}
		before = batchAuditValues(locked, prevLines, nil)
		if err := adjRepo.DeleteBatch(ctx, batchID); err != nil {
			return fmt.Errorf("borrar lote: %w", err)
		}
		return nil
	})
	if err != nil {
		uc.logFailure(err, OpDelete, batchID, current.WarehouseID, actorID)
		return nil, err
	}
	uc.log.Info().Str("batch_id", batchID).Str("actor_id", actorID).Msg("lote de ajuste eliminado")

	out := &dto.DeleteAdjustmentResponse{ID: batchID, Deleted: true}
	if w := uc.recordAudit(ctx, actorID, entity.AuditDelete, entity.ResourceAdjustmentBatch, batchID, before, nil); len(w) > 0 {
		out.AuditWarning = strings.Join(w, "; ")
	}
	return out, nil
}

// GetBatch devuelve un lote con sus líneas.
func (uc *AdjustmentUseCase) GetBatch(ctx context.Context, batchID string) (*dto.AdjustmentBatchResponse, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, domain.NewValidationError("id", "requerido")
	}
	batch, err := uc.adjustments.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("obtener lote: %w", err)
	}
	if batch == nil {
		return nil, fmt.Errorf("%w: lote %s", domain.ErrNotFound, batchID)
	}
	lines, err := uc.adjustments.ListLines(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("listar líneas: %w", err)
	}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products := map[string]*entity.Product{}
	if len(ids) > 0 {
		if products, err = uc.products.GetManyByID(ctx, ids); err != nil {
			return nil, fmt.Errorf("obtener productos: %w", err)
		}
	}
	return toBatchResponse(batch, lines, products, nil), nil
}

// ListBatches lista cabeceras de lotes, más recientes primero.
func (uc *AdjustmentUseCase) ListBatches(ctx context.Context, warehouseID string, limit, offset int) (*dto.AdjustmentBatchListResponse, error) {
	list, err := uc.adjustments.ListBatches(ctx, repository.AdjustmentFilter{WarehouseID: warehouseID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("listar lotes: %w", err)
	}
	items := make([]dto.AdjustmentBatchResponse, 0, len(list))
	for _, b := range list {
		items = append(items, *toBatchResponse(b, nil, nil, nil))
	}
	return &dto.AdjustmentBatchListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}}, nil
}

// prepare valida el borrador y resuelve productos y conversión; nada se escribe aún.
func (uc *AdjustmentUseCase) prepare(ctx context.Context, actorID string, draft *inv.DraftBatch) (*inv.DraftBatch, map[string]*entity.Product, *conversionPlan, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, nil, nil, domain.NewValidationError("actor_id", "requerido")
	}
	if draft == nil {
		return nil, nil, nil, domain.NewValidationError("lines", "el lote debe tener al menos una línea")
	}
	d := draft.Clone()
	if err := d.Validate(); err != nil {
		return nil, nil, nil, err
	}

	wh, err := uc.warehouses.GetByID(ctx, d.WarehouseID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("obtener bodega: %w", err)
	}
	if wh == nil {
		return nil, nil, nil, domain.NewValidationError("warehouse_id", fmt.Sprintf("la bodega %s no existe", d.WarehouseID))
	}

	products, err := uc.products.GetManyByID(ctx, d.ProductIDs())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("obtener productos: %w", err)
	}
	for i, l := range d.Lines {
		if products[l.ProductID] == nil {
			return nil, nil, nil, domain.NewValidationError(fmt.Sprintf("lines[%d].product_id", i),
				fmt.Sprintf("el producto %s no existe", l.ProductID))
		}
	}

	if !d.Reason.IsConversion() {
		return d, products, nil, nil
	}
	plan, err := uc.planConversion(ctx, d, products)
	if err != nil {
		return nil, nil, nil, err
	}
	return d, products, plan, nil
}

// planConversion determina el producto producido: explícito en el borrador o por regla de código.
func (uc *AdjustmentUseCase) planConversion(ctx context.Context, d *inv.DraftBatch, products map[string]*entity.Product) (*conversionPlan, error) {
	source := products[d.Conversion.SourceProductID]
	if id := d.Conversion.ProducedProductID; id != "" {
		produced, err := uc.products.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("obtener producto producido: %w", err)
		}
		if produced == nil {
			return nil, &domain.ConversionProductMissingError{SourceProductID: source.ID, ProducedProductID: id}
		}
		products[produced.ID] = produced
		return &conversionPlan{source: source, producedID: produced.ID}, nil
	}
	code, ok := uc.policy.ConversionRules[source.Code]
	if !ok {
		return nil, &domain.ConversionProductMissingError{
			SourceProductID: source.ID,
			Detail:          fmt.Sprintf("no hay regla de conversión para el código %s", source.Code),
		}
	}
	produced, err := uc.products.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("obtener producto producido: %w", err)
	}
	if produced == nil {
		return nil, &domain.ConversionProductMissingError{
			SourceProductID: source.ID,
			Detail:          fmt.Sprintf("el código producido %s no existe en el catálogo", code),
		}
	}
	if produced.ID == source.ID {
		return nil, domain.NewValidationError("conversion.produced_product_id", "origen y producido deben ser distintos")
	}
	products[produced.ID] = produced
	return &conversionPlan{source: source, producedID: produced.ID}, nil
}

// derivation resultado de derivar las líneas dentro de la transacción.
type derivation struct {
	lines      []*entity.AdjustmentLine
	producedID string
	oldCost    decimal.Decimal
	newCost    decimal.Decimal
}

// deriveAndPersist re-resuelve cada saldo con los repos de la tx, recalcula after, detecta
// cambios concurrentes, sintetiza la línea producida de una conversión e inserta todo.
func (uc *AdjustmentUseCase) deriveAndPersist(
	ctx context.Context,
	adjRepo repository.AdjustmentRepository,
	sourceRepo repository.StockSourceRepository,
	productRepo repository.ProductRepository,
	batch *entity.AdjustmentBatch,
	d *inv.DraftBatch,
	products map[string]*entity.Product,
	plan *conversionPlan,
) (*derivation, error) {
	ids := d.ProductIDs()
	if plan != nil {
		ids = append(ids, plan.producedID)
	}
	fresh, err := resolveBalances(ctx, sourceRepo, ids, batch.WarehouseID, "")
	if err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	res := &derivation{lines: make([]*entity.AdjustmentLine, 0, len(ids))}
	for _, dl := range d.Lines {
		before := fresh[dl.ProductID]
		after := inv.ApplyDirection(before, dl.Direction, dl.Quantity)
		if !before.Equal(dl.BeforeStock) {
			knownAfter := inv.ApplyDirection(dl.BeforeStock, dl.Direction, dl.Quantity)
			if uc.policy.RejectAnyDrift || (!knownAfter.IsNegative() && after.IsNegative()) {
				return nil, &domain.ConcurrentStockChangeError{
					ProductID:   dl.ProductID,
					ProductCode: products[dl.ProductID].Code,
					WarehouseID: batch.WarehouseID,
					Known:       dl.BeforeStock,
					Observed:    before,
				}
			}
			uc.log.Info().
				Str("batch_id", batch.ID).
				Str("product_id", dl.ProductID).
				Str("warehouse_id", batch.WarehouseID).
				Str("known", dl.BeforeStock.String()).
				Str("observed", before.String()).
				Msg("saldo re-resuelto difiere del borrador; se recalcula")
		}
		if !uc.policy.AllowNegativeStock && dl.Direction == entity.DirectionSubtraction && after.IsNegative() {
			return nil, fmt.Errorf("%w: %s quedaría en %s", domain.ErrInsufficientStock, products[dl.ProductID].Code, after.String())
		}
		res.lines = append(res.lines, newLine(batch.ID, len(res.lines)+1, dl.ProductID, dl.Direction, dl.Quantity, before, dl.UnitCost, now))
	}

	if plan != nil {
		if err := uc.synthesizeProduced(ctx, productRepo, batch, d, plan, fresh, res, now); err != nil {
			return nil, err
		}
	}

	for _, l := range res.lines {
		if !l.CheckArithmetic() {
			return nil, fmt.Errorf("%w: línea %d del producto %s", domain.ErrLineArithmetic, l.LineNo, l.ProductID)
		}
	}
	if err := adjRepo.CreateLines(ctx, res.lines); err != nil {
		return nil, fmt.Errorf("crear líneas: %w", err)
	}
	if plan != nil {
		if err := productRepo.UpdateCost(ctx, res.producedID, res.newCost); err != nil {
			return nil, fmt.Errorf("actualizar costo producido: %w", err)
		}
	}
	return res, nil
}

// synthesizeProduced agrega la línea addition del producto producido, siempre después de la del origen.
// unit_cost = costo vigente del origen + costo adicional por unidad.
func (uc *AdjustmentUseCase) synthesizeProduced(
	ctx context.Context,
	productRepo repository.ProductRepository,
	batch *entity.AdjustmentBatch,
	d *inv.DraftBatch,
	plan *conversionPlan,
	fresh map[string]decimal.Decimal,
	res *derivation,
	now time.Time,
) error {
	source, err := productRepo.GetForUpdate(ctx, plan.source.ID)
	if err != nil {
		return fmt.Errorf("bloquear producto origen: %w", err)
	}
	if source == nil {
		return fmt.Errorf("%w: producto origen %s", domain.ErrNotFound, plan.source.ID)
	}
	produced, err := productRepo.GetForUpdate(ctx, plan.producedID)
	if err != nil {
		return fmt.Errorf("bloquear producto producido: %w", err)
	}
	if produced == nil {
		return &domain.ConversionProductMissingError{SourceProductID: source.ID, ProducedProductID: plan.producedID}
	}

	cost := inv.ConversionUnitCost(source.Cost, d.Conversion.AdditionalCostPerUnit)
	res.lines = append(res.lines, newLine(batch.ID, len(res.lines)+1, produced.ID, entity.DirectionAddition,
		d.Conversion.Quantity, fresh[produced.ID], cost, now))
	res.producedID = produced.ID
	res.oldCost = produced.Cost
	res.newCost = cost
	return nil
}

func newLine(batchID string, lineNo int, productID string, dir entity.Direction, qty, before, unitCost decimal.Decimal, now time.Time) *entity.AdjustmentLine {
	return &entity.AdjustmentLine{
		ID:          uuid.New().String(),
		BatchID:     batchID,
		LineNo:      lineNo,
		ProductID:   productID,
		Direction:   dir,
		Quantity:    qty,
		BeforeStock: before,
		AfterStock:  inv.ApplyDirection(before, dir, qty),
		UnitCost:    unitCost,
		TotalCost:   inv.LineTotal(qty, unitCost),
		CreatedAt:   now,
	}
}

// lock toma los bloqueos consultivos. Un bloqueo ocupado es conflicto; una falla del locker
// se registra y el commit sigue serializado por LockBalances dentro de la tx.
func (uc *AdjustmentUseCase) lock(ctx context.Context, warehouseID string, productIDs ...[]string) (func(), error) {
	keys := stockLockKeys(warehouseID, productIDs...)
	if len(keys) == 0 {
		return func() {}, nil
	}
	release, err := uc.locker.Lock(ctx, keys)
	if err == nil {
		return release, nil
	}
	if errors.Is(err, domain.ErrConflict) {
		return nil, err
	}
	uc.log.Warn().Err(err).Str("warehouse_id", warehouseID).Msg("bloqueo de stock no disponible, se continúa")
	return func() {}, nil
}

// recordAudit registra la auditoría sin afectar la mutación ya confirmada; devuelve avisos.
func (uc *AdjustmentUseCase) recordAudit(ctx context.Context, actorID string, action entity.AuditAction, resourceType, resourceID string, oldValues, newValues map[string]any) []string {
	if uc.audit == nil {
		return nil
	}
	if err := uc.audit.Record(ctx, actorID, action, resourceType, resourceID, oldValues, newValues); err != nil {
		uc.observer.ObserveAuditFailure(resourceType)
		uc.log.Warn().Err(err).
			Str("resource_type", resourceType).
			Str("resource_id", resourceID).
			Str("actor_id", actorID).
			Msg("auditoría no registrada")
		return []string{err.Error()}
	}
	return nil
}

func (uc *AdjustmentUseCase) recordCostRollup(ctx context.Context, actorID string, res *derivation) []string {
	if res == nil || res.producedID == "" {
		return nil
	}
	return uc.recordAudit(ctx, actorID, entity.AuditUpdate, entity.ResourceProduct, res.producedID,
		map[string]any{"cost": res.oldCost}, map[string]any{"cost": res.newCost})
}

func (uc *AdjustmentUseCase) logFailure(err error, op, batchID, warehouseID, actorID string) {
	ev := uc.log.Warn()
	if outcomeOf(err) == OutcomeStorage || outcomeOf(err) == OutcomeError {
		ev = uc.log.Error()
	}
	ev.Err(err).
		Str("op", op).
		Str("batch_id", batchID).
		Str("warehouse_id", warehouseID).
		Str("actor_id", actorID).
		Msg("operación de ajuste abortada")
}

func producedIDs(plan *conversionPlan) []string {
	if plan == nil {
		return nil
	}
	return []string{plan.producedID}
}

// stockKeys pares (bodega, producto) para LockBalances.
func stockKeys(warehouseID string, sets ...[]string) []repository.StockKey {
	var out []repository.StockKey
	for _, ids := range sets {
		for _, id := range ids {
			out = append(out, repository.StockKey{WarehouseID: warehouseID, ProductID: id})
		}
	}
	return out
}

func lineProductIDs(lines []*entity.AdjustmentLine) []string {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}

// NewReference genera una referencia de lote: ADJ-AAAAMMDD-XXXXXXXX.
func NewReference(now time.Time) string {
	return fmt.Sprintf("ADJ-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.New().String()[:8]))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrInvalidInput):
		return OutcomeValidation
	case errors.Is(err, domain.ErrConversionProductMissing):
		return OutcomeConversionMissing
	case errors.Is(err, domain.ErrConcurrentStockChange),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrDuplicateRequest),
		errors.Is(err, domain.ErrDuplicate):
		return OutcomeConflict
	case errors.Is(err, domain.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrStorageUnavailable), errors.Is(err, domain.ErrTransactionAborted):
		return OutcomeStorage
	default:
		return OutcomeError
	}
}

// batchAuditValues instantánea del lote para el diff: cabecera más un resumen de líneas.
func batchAuditValues(b *entity.AdjustmentBatch, lines []*entity.AdjustmentLine, products map[string]*entity.Product) map[string]any {
	values := b.AuditValues()
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		name := l.ProductID
		if p := products[l.ProductID]; p != nil {
			name = p.Code
		}
		parts = append(parts, fmt.Sprintf("%s %s %s (%s→%s) @%s",
			name, l.Direction, l.Quantity.String(), l.BeforeStock.String(), l.AfterStock.String(), l.UnitCost.String()))
	}
	values["lines"] = strings.Join(parts, "; ")
	return values
}

func toBatchResponse(b *entity.AdjustmentBatch, lines []*entity.AdjustmentLine, products map[string]*entity.Product, warnings []string) *dto.AdjustmentBatchResponse {
	out := &dto.AdjustmentBatchResponse{
		ID:                    b.ID,
		Reference:             b.Reference,
		WarehouseID:           b.WarehouseID,
		Reason:                string(b.Reason),
		ReasonNote:            b.ReasonNote,
		AdditionalCostPerUnit: b.AdditionalCostPerUnit,
		AdjustedBy:            b.AdjustedBy,
		AdjustedAt:            b.AdjustedAt,
		AuditWarning:          strings.Join(warnings, "; "),
	}
	for _, l := range lines {
		lr := dto.AdjustmentLineResponse{
			ID:          l.ID,
			LineNo:      l.LineNo,
			ProductID:   l.ProductID,
			Direction:   string(l.Direction),
			Quantity:    l.Quantity,
			BeforeStock: l.BeforeStock,
			AfterStock:  l.AfterStock,
			UnitCost:    l.UnitCost,
			TotalCost:   l.TotalCost,
		}
		if p := products[l.ProductID]; p != nil {
			lr.ProductCode = p.Code
			lr.ProductName = p.Name
		}
		out.Lines = append(out.Lines, lr)
	}
	return out
}
