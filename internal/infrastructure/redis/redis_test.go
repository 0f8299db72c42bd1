package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/jhoicas/stockledger-api/internal/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func fastLocker(client *goredis.Client) *StockLocker {
	l := NewStockLocker(client, time.Second, nil)
	l.retries = 1
	l.backoff = time.Millisecond
	return l
}

func TestStockLocker_ExclusionYLiberacion(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	l := fastLocker(client)

	release, err := l.Lock(ctx, []string{"stock:W:A", "stock:W:B"})
	require.NoError(t, err)
	assert.True(t, mr.Exists("stock:W:A"))
	assert.True(t, mr.Exists("stock:W:B"))

	_, err = l.Lock(ctx, []string{"stock:W:B"})
	require.ErrorIs(t, err, domain.ErrConflict)

	release()
	assert.False(t, mr.Exists("stock:W:A"))

	release2, err := l.Lock(ctx, []string{"stock:W:B"})
	require.NoError(t, err)
	release2()
}

func TestStockLocker_FallaParcialLiberaLoTomado(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	l := fastLocker(client)

	releaseB, err := l.Lock(ctx, []string{"stock:W:B"})
	require.NoError(t, err)
	defer releaseB()

	_, err = l.Lock(ctx, []string{"stock:W:A", "stock:W:B"})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.False(t, mr.Exists("stock:W:A"), "la clave A no queda retenida")
}

func TestStockLocker_TTL(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	l := fastLocker(client)

	_, err := l.Lock(ctx, []string{"stock:W:A"})
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	release, err := l.Lock(ctx, []string{"stock:W:A"})
	require.NoError(t, err, "un bloqueo vencido no retiene la clave")
	release()
}

func TestStockLocker_RedisCaido(t *testing.T) {
	mr, client := newTestClient(t)
	mr.Close()

	_, err := fastLocker(client).Lock(context.Background(), []string{"stock:W:A"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrConflict)
}

func TestIdempotencyStore(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	s := NewIdempotencyStore(client, time.Minute)

	ok, err := s.Claim(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Claim(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Release(ctx, "k1"))
	ok, err = s.Claim(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = s.Claim(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok, "la clave vence con el TTL")
}
