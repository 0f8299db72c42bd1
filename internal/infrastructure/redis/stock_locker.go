package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/pkg/logger"
)

var _ inventory.StockLocker = (*StockLocker)(nil)

// StockLocker bloqueos consultivos por (bodega, producto) sobre Redis.
type StockLocker struct {
	locker  *redislock.Client
	ttl     time.Duration
	retries int
	backoff time.Duration
	log     *logger.Logger
}

// NewStockLocker construye el locker. ttl acota cuánto puede retener un commit caído las claves.
func NewStockLocker(client *goredis.Client, ttl time.Duration, log *logger.Logger) *StockLocker {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &StockLocker{
		locker:  redislock.New(client),
		ttl:     ttl,
		retries: 10,
		backoff: 50 * time.Millisecond,
		log:     log.Named("stock_locker"),
	}
}

// Lock toma todas las claves en el orden recibido (ordenadas por el llamador, sin deadlocks entre commits).
// Si alguna está ocupada tras los reintentos libera las ya tomadas y devuelve un error que envuelve ErrConflict.
func (s *StockLocker) Lock(ctx context.Context, keys []string) (func(), error) {
	held := make([]*redislock.Lock, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				s.log.Warn().Err(err).Str("key", held[i].Key()).Msg("liberar bloqueo")
			}
		}
	}
	opts := &redislock.Options{RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(s.backoff), s.retries)}
	for _, key := range keys {
		lock, err := s.locker.Obtain(ctx, key, s.ttl, opts)
		if err != nil {
			release()
			if errors.Is(err, redislock.ErrNotObtained) {
				return nil, fmt.Errorf("%w: %s está siendo ajustado por otro usuario", domain.ErrConflict, key)
			}
			return nil, fmt.Errorf("obtener bloqueo %s: %w", key, err)
		}
		held = append(held, lock)
	}
	return release, nil
}
