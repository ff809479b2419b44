package redis

import (
	"context"
	"testing"
	"time"

	"multi-merchant-settlement/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewSettlementCache(client)
	ctx := context.Background()

	// Get before set => nil
	result, err := cache.Get(ctx, 1001)
	assert.NoError(t, err)
	assert.Nil(t, result)

	stored := &domain.SettlementResult{
		OrderID:        1001,
		Success:        true,
		TransactionIDs: []string{"T1", "T2"},
		TotalCharged:   decimal.RequireFromString("100.00"),
		RedirectURL:    "/checkout/order-received/1001",
	}
	require.NoError(t, cache.Set(ctx, stored, 24*time.Hour))
	assert.True(t, s.Exists("mms:settlement:1001"))

	result, err = cache.Get(ctx, 1001)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, []string{"T1", "T2"}, result.TransactionIDs)
	assert.True(t, stored.TotalCharged.Equal(result.TotalCharged))
	assert.Equal(t, stored.RedirectURL, result.RedirectURL)
}

func TestSettlementCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewSettlementCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &domain.SettlementResult{OrderID: 5, Success: true}, time.Second))

	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, 5)
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestSettlementCache_CorruptEntry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewSettlementCache(client)

	require.NoError(t, s.Set("mms:settlement:9", "not-json"))

	_, err := cache.Get(context.Background(), 9)
	assert.Error(t, err)
}
