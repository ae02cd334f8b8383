package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/turfshop/internal/domain/cart"
)

// --- Mock implementations ---

type mockClient struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	failErr error
}

func newMockClient() *mockClient {
	return &mockClient{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockClient) GetEx(_ context.Context, key string, ttl time.Duration) *redis.StringCmd {
	if m.failErr != nil {
		return redis.NewStringResult("", m.failErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	m.ttls[key] = ttl
	return redis.NewStringResult(string(v), nil)
}

func (m *mockClient) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	if m.failErr != nil {
		return redis.NewStatusResult("", m.failErr)
	}
	m.data[key] = value.([]byte)
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (m *mockClient) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if m.failErr != nil {
		return redis.NewBoolResult(false, m.failErr)
	}
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = []byte(value.(string))
	m.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

// Eval understands only the compare-and-delete unlock script.
func (m *mockClient) Eval(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	if string(m.data[keys[0]]) != args[0].(string) {
		return redis.NewCmdResult(int64(0), nil)
	}
	delete(m.data, keys[0])
	return redis.NewCmdResult(int64(1), nil)
}

func (m *mockClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestCartStore_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	client := newMockClient()
	store := NewCartStore(client, 24*time.Hour)

	snap := cart.Snapshot{
		ID:       "c1",
		Items:    []cart.Item{{ID: "i1", ProductID: "p1", Width: decimal.NewFromInt(2), Height: decimal.NewFromInt(3)}},
		Discount: decimal.RequireFromString("0.1"),
		Code:     "SAVE10",
	}
	require.NoError(t, store.Save(ctx, snap))
	assert.Equal(t, 24*time.Hour, client.ttls["turfshop:cart:c1"])

	got, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "p1", got.Items[0].ProductID)
	assert.Equal(t, "SAVE10", got.Code)

	require.NoError(t, store.Delete(ctx, "c1"))
	_, err = store.Load(ctx, "c1")
	require.ErrorIs(t, err, cart.ErrNotFound)
	require.ErrorIs(t, store.Delete(ctx, "c1"), cart.ErrNotFound)
}

func TestCartStore_LoadRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	client := newMockClient()
	store := NewCartStore(client, time.Hour)

	require.NoError(t, store.Save(ctx, cart.Snapshot{ID: "c1", Discount: decimal.Zero}))
	client.ttls["turfshop:cart:c1"] = time.Minute

	_, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, client.ttls["turfshop:cart:c1"])
}

func TestCartStore_Lock(t *testing.T) {
	ctx := context.Background()
	client := newMockClient()
	store := NewCartStore(client, time.Hour)

	unlock, err := store.Lock(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, lockTTL, client.ttls["turfshop:cart:c1:lock"])

	waitCtx, cancel := context.WithTimeout(ctx, 2*lockRetry)
	defer cancel()
	_, err = store.Lock(waitCtx, "c1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := store.Lock(ctx, "c2")
	require.NoError(t, err, "locks are per cart")
	other()

	unlock()
	_, held := client.data["turfshop:cart:c1:lock"]
	assert.False(t, held)

	unlock, err = store.Lock(ctx, "c1")
	require.NoError(t, err)
	client.data["turfshop:cart:c1:lock"] = []byte("taken-over")
	unlock()
	assert.Equal(t, "taken-over", string(client.data["turfshop:cart:c1:lock"]), "stale owner leaves a newer lock alone")
}

func TestCartStore_LockClientFailure(t *testing.T) {
	client := newMockClient()
	client.failErr = errors.New("connection refused")

	_, err := NewCartStore(client, 0).Lock(context.Background(), "c1")
	require.Error(t, err)
}

func TestCartStore_LoadCorrupt(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "garbage", raw: "{{{"},
		{name: "id mismatch", raw: `{"id":"other","items":[],"discount":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMockClient()
			client.data["turfshop:cart:c1"] = []byte(tt.raw)

			_, err := NewCartStore(client, 0).Load(context.Background(), "c1")
			var corrupt *cart.CorruptError
			require.ErrorAs(t, err, &corrupt)
			assert.Equal(t, "c1", corrupt.ID)
		})
	}
}

func TestCartStore_ClientFailure(t *testing.T) {
	client := newMockClient()
	client.failErr = errors.New("connection refused")
	store := NewCartStore(client, 0)

	_, err := store.Load(context.Background(), "c1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, cart.ErrNotFound)

	require.Error(t, store.Save(context.Background(), cart.Snapshot{ID: "c1"}))
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", c.Options().Addr)

	c, err = NewClient("redis://:secret@cache:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", c.Options().Addr)
	assert.Equal(t, 2, c.Options().DB)

	_, err = NewClient("redis://host:6379/notanumber")
	require.Error(t, err)
}
