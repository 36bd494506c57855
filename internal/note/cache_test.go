package note

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*StoreCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache, err := NewStoreCache("redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestStoreCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "alice")
	assert.False(t, ok)

	store := NewUserStore()
	store.Notes["n1"] = Note{ID: "n1", Title: "hello", Color: DefaultColor}
	store.UnpinnedOrder = []string{"n1"}
	cache.Set(ctx, "alice", store)

	got, ok := cache.Get(ctx, "alice")
	require.True(t, ok)
	assert.Equal(t, store.UnpinnedOrder, got.UnpinnedOrder)
	assert.Equal(t, "hello", got.Notes["n1"].Title)

	// other users do not see it
	_, ok = cache.Get(ctx, "bob")
	assert.False(t, ok)
}

func TestStoreCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, "alice", NewUserStore())
	_, ok := cache.Get(ctx, "alice")
	require.True(t, ok)

	cache.Invalidate(ctx, "alice")
	_, ok = cache.Get(ctx, "alice")
	assert.False(t, ok)
}

func TestStoreCacheSetNXKeepsExistingEntry(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	fresh := NewUserStore()
	fresh.Notes["n1"] = Note{ID: "n1"}
	fresh.UnpinnedOrder = []string{"n1"}
	cache.Set(ctx, "alice", fresh)

	cache.SetNX(ctx, "alice", NewUserStore())

	got, ok := cache.Get(ctx, "alice")
	require.True(t, ok)
	assert.Equal(t, []string{"n1"}, got.UnpinnedOrder, "SetNX replaced an existing entry")
}

func TestStoreCacheSetNXFillsEmptySlot(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	fresh := NewUserStore()
	fresh.UnpinnedOrder = []string{"n1"}
	cache.SetNX(ctx, "alice", fresh)

	got, ok := cache.Get(ctx, "alice")
	require.True(t, ok)
	assert.Equal(t, []string{"n1"}, got.UnpinnedOrder)
}

func TestStoreCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, "alice", NewUserStore())
	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, "alice")
	assert.False(t, ok)
}

func TestStoreCacheDownDegradesToMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, "alice", NewUserStore())
	mr.Close()

	_, ok := cache.Get(ctx, "alice")
	assert.False(t, ok)
}

func TestNewStoreCacheBadURL(t *testing.T) {
	_, err := NewStoreCache("not-a-url", time.Minute)
	assert.Error(t, err)
}
