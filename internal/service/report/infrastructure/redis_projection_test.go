package infrastructure

import (
	"context"
	"testing"
	"time"

	"nexuspos/internal/pkg/redis"
	saledomain "nexuspos/internal/service/sale/domain"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProjection(t *testing.T, loc *time.Location) (*RedisLiveProjection, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })

	p, err := NewRedisLiveProjection(client, loc, time.Hour)
	require.NoError(t, err)
	return p, mr
}

func saleEvent(id string, at time.Time, total, discount string, lines ...saledomain.SaleCompletedLine) *saledomain.SaleCompleted {
	return &saledomain.SaleCompleted{
		EventID:        "evt-" + id,
		SaleID:         id,
		TotalAmount:    decimal.RequireFromString(total),
		DiscountAmount: decimal.RequireFromString(discount),
		PaymentMethod:  saledomain.PaymentMethod("cash"),
		Items:          lines,
		OccurredAt:     at,
	}
}

func line(id, name string, qty int, total string) saledomain.SaleCompletedLine {
	return saledomain.SaleCompletedLine{ProductID: id, ProductName: name, Quantity: qty, TotalPrice: decimal.RequireFromString(total)}
}

func TestRedisLiveProjection_ApplyAndSnapshot(t *testing.T) {
	p, mr := newTestProjection(t, time.UTC)
	ctx := context.Background()
	at := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	applied, err := p.Apply(ctx, saleEvent("s1", at, "450.50", "50", line("A", "Apple", 3, "300.50"), line("B", "Bread", 2, "200")))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = p.Apply(ctx, saleEvent("s2", at.Add(time.Hour), "100", "0", line("B", "Bread", 1, "100")))
	require.NoError(t, err)
	assert.True(t, applied)

	snap, err := p.Snapshot(ctx, "2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-15", snap.Date)
	assert.Equal(t, 2, snap.Orders)
	assert.Equal(t, 6, snap.Items)
	assert.True(t, decimal.RequireFromString("550.5").Equal(snap.Sales), snap.Sales.String())
	assert.True(t, decimal.NewFromInt(50).Equal(snap.Discount))
	assert.True(t, decimal.RequireFromString("275.25").Equal(snap.AvgOrderValue))

	require.Len(t, snap.TopProducts, 2)
	assert.Equal(t, "Apple", snap.TopProducts[0].ProductName)
	assert.Equal(t, 3, snap.TopProducts[0].Quantity)
	assert.Equal(t, "B", snap.TopProducts[1].ProductID)
	assert.Equal(t, 3, snap.TopProducts[1].Quantity)
	assert.True(t, decimal.NewFromInt(300).Equal(snap.TopProducts[1].Revenue))

	assert.Equal(t, time.Hour, mr.TTL("pos:live:{2025-06-15}:totals"))
}

func TestRedisLiveProjection_Idempotent(t *testing.T) {
	p, _ := newTestProjection(t, time.UTC)
	ctx := context.Background()
	ev := saleEvent("s1", time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), "100", "0", line("A", "Apple", 1, "100"))

	applied, err := p.Apply(ctx, ev)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = p.Apply(ctx, ev)
	require.NoError(t, err)
	assert.False(t, applied)

	snap, err := p.Snapshot(ctx, "2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Orders)
	assert.True(t, decimal.NewFromInt(100).Equal(snap.Sales))
}

func TestRedisLiveProjection_BucketsByStoreDate(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	p, _ := newTestProjection(t, loc)
	ctx := context.Background()

	// 6/15 20:00 UTC 在 UTC+7 是 6/16
	ev := saleEvent("s1", time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC), "10", "0", line("A", "Apple", 1, "10"))
	assert.Equal(t, "2025-06-16", p.DateOf(ev))
	_, err := p.Apply(ctx, ev)
	require.NoError(t, err)

	snap, err := p.Snapshot(ctx, "2025-06-16")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Orders)

	snap, err = p.Snapshot(ctx, "2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Orders)
}

func TestRedisLiveProjection_EmptyDay(t *testing.T) {
	p, _ := newTestProjection(t, time.UTC)

	snap, err := p.Snapshot(context.Background(), "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Orders)
	assert.True(t, snap.Sales.IsZero())
	assert.True(t, snap.AvgOrderValue.IsZero())
	assert.NotNil(t, snap.TopProducts)
	assert.Empty(t, snap.TopProducts)
}

func TestRedisLiveProjection_Unavailable(t *testing.T) {
	p, mr := newTestProjection(t, time.UTC)
	mr.Close()

	_, err := p.Apply(context.Background(), saleEvent("s1", time.Now(), "1", "0"))
	assert.Error(t, err)
}
