package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error nada de lo escrito persiste.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		adjRepo repository.AdjustmentRepository,
		sourceRepo repository.StockSourceRepository,
		productRepo repository.ProductRepository,
	) error) error
}

// StockLocker bloqueo consultivo por par (producto, bodega) durante el commit.
// Un bloqueo ocupado devuelve un error que envuelve domain.ErrConflict; cualquier otro error es de infraestructura.
type StockLocker interface {
	Lock(ctx context.Context, keys []string) (release func(), err error)
}

// NoopLocker locker sin efecto (sin Redis configurado).
type NoopLocker struct{}

// Lock no bloquea nada.
func (NoopLocker) Lock(context.Context, []string) (func(), error) { return func() {}, nil }

// IdempotencyStore reserva claves Idempotency-Key de commits.
type IdempotencyStore interface {
	// Claim devuelve false si la clave ya fue reservada y sigue vigente.
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// AuditRecorder contrato del registro de auditoría que usan los casos de uso.
type AuditRecorder interface {
	Record(ctx context.Context, actorID string, action entity.AuditAction, resourceType, resourceID string, oldValues, newValues map[string]any) error
}

// CommitObserver recibe el resultado de cada operación del libro (métricas).
type CommitObserver interface {
	ObserveCommit(op, outcome string, elapsed time.Duration)
	ObserveAuditFailure(resourceType string)
}

type nopObserver struct{}

func (nopObserver) ObserveCommit(string, string, time.Duration) {}
func (nopObserver) ObserveAuditFailure(string)                  {}

// StockLockKey clave de bloqueo de un par (producto, bodega).
func StockLockKey(productID, warehouseID string) string {
	return "stock:" + warehouseID + ":" + productID
}

// stockLockKeys claves únicas y ordenadas (orden fijo evita interbloqueos entre commits).
func stockLockKeys(warehouseID string, productIDs ...[]string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, ids := range productIDs {
		for _, id := range ids {
			if id == "" {
				continue
			}
			k := StockLockKey(id, warehouseID)
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}
