package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/turfshop/internal/domain/cart"
)

func TestCartStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewCartStore(0)

	_, err := s.Load(ctx, "c1")
	require.ErrorIs(t, err, cart.ErrNotFound)

	require.NoError(t, s.Save(ctx, cart.Snapshot{
		ID:       "c1",
		Items:    []cart.Item{{ID: "i1", ProductID: "p1", Width: decimal.NewFromInt(1), Height: decimal.NewFromInt(1)}},
		Discount: decimal.Zero,
	}))

	got, err := s.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
	require.Len(t, got.Items, 1)

	require.NoError(t, s.Delete(ctx, "c1"))
	require.ErrorIs(t, s.Delete(ctx, "c1"), cart.ErrNotFound)
}

func TestCartStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewCartStore(time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, cart.Snapshot{ID: "a", Discount: decimal.Zero}))
	now = now.Add(30 * time.Minute)
	require.NoError(t, s.Save(ctx, cart.Snapshot{ID: "b", Discount: decimal.Zero}))

	now = now.Add(40 * time.Minute)
	_, err := s.Load(ctx, "a")
	require.ErrorIs(t, err, cart.ErrNotFound)
	_, err = s.Load(ctx, "b")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	assert.Equal(t, 1, s.Sweep())
	assert.Zero(t, s.Len())
}

func TestCartStore_CorruptEntry(t *testing.T) {
	s := NewCartStore(0)
	s.entries["c1"] = entry{data: []byte("not json")}

	_, err := s.Load(context.Background(), "c1")
	var corrupt *cart.CorruptError
	require.ErrorAs(t, err, &corrupt)
}

func TestCartStore_LoadExtendsExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewCartStore(time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, cart.Snapshot{ID: "c1", Discount: decimal.Zero}))

	for range 3 {
		now = now.Add(50 * time.Minute)
		_, err := s.Load(ctx, "c1")
		require.NoError(t, err, "read within ttl of the previous access")
	}
	assert.Zero(t, s.Sweep())

	now = now.Add(time.Hour)
	_, err := s.Load(ctx, "c1")
	require.ErrorIs(t, err, cart.ErrNotFound)
}
