package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
)

var _ inventory.IdempotencyStore = (*IdempotencyStore)(nil)

const idempotencyPrefix = "idem:adjustment:"

// IdempotencyStore reserva Idempotency-Key con SET NX y vencimiento.
type IdempotencyStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewIdempotencyStore construye el store.
func NewIdempotencyStore(client *goredis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Claim reserva la clave; false si ya estaba reservada.
func (s *IdempotencyStore) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, idempotencyPrefix+key, time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reservar Idempotency-Key: %w", err)
	}
	return ok, nil
}

// Release libera la clave tras un commit fallido para permitir el reintento.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyPrefix+key).Err(); err != nil {
		return fmt.Errorf("liberar Idempotency-Key: %w", err)
	}
	return nil
}
