package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"nexuspos/internal/pkg/redis"
	"nexuspos/internal/service/report/domain"
	saledomain "nexuspos/internal/service/sale/domain"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const applySaleScript = "live_apply_sale"

// 幂等地把一笔销售累加到当天的汇总上。
// KEYS: seen(set) totals(hash) revenue(zset) quantity(hash) names(hash)
// ARGV: sale_id total discount items ttl_seconds, 然后每行 product_id revenue name quantity
const applySaleLua = `
if redis.call('SADD', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('HINCRBYFLOAT', KEYS[2], 'sales', ARGV[2])
redis.call('HINCRBYFLOAT', KEYS[2], 'discount', ARGV[3])
redis.call('HINCRBY', KEYS[2], 'orders', 1)
redis.call('HINCRBY', KEYS[2], 'items', ARGV[4])
for i = 6, #ARGV, 4 do
  redis.call('ZINCRBY', KEYS[3], ARGV[i + 1], ARGV[i])
  redis.call('HINCRBY', KEYS[4], ARGV[i], ARGV[i + 3])
  redis.call('HSET', KEYS[5], ARGV[i], ARGV[i + 2])
end
for i = 1, #KEYS do
  redis.call('EXPIRE', KEYS[i], ARGV[5])
end
return 1
`

// RedisLiveProjection 把当天的实时汇总放在 Redis 中，按门店时区的日期分 key。
// 同一天的 key 共用一个 hash tag，集群模式下落在同一个 slot。
type RedisLiveProjection struct {
	client *redis.Client
	loc    *time.Location
	ttl    time.Duration
	topN   int
}

func NewRedisLiveProjection(client *redis.Client, loc *time.Location, ttl time.Duration) (*RedisLiveProjection, error) {
	if err := client.LoadScriptFromContent(applySaleScript, applySaleLua); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisLiveProjection{client: client, loc: loc, ttl: ttl, topN: domain.DefaultTopN}, nil
}

func (p *RedisLiveProjection) WithTopN(n int) *RedisLiveProjection {
	if n > 0 {
		p.topN = n
	}
	return p
}

type liveKeys struct {
	seen, totals, revenue, quantity, names string
}

func keysFor(date string) liveKeys {
	prefix := "pos:live:{" + date + "}:"
	return liveKeys{
		seen:     prefix + "seen",
		totals:   prefix + "totals",
		revenue:  prefix + "revenue",
		quantity: prefix + "quantity",
		names:    prefix + "names",
	}
}

// DateOf 返回事件所属的营业日
func (p *RedisLiveProjection) DateOf(ev *saledomain.SaleCompleted) string {
	return ev.OccurredAt.In(p.loc).Format(domain.DateLayout)
}

func (p *RedisLiveProjection) Apply(ctx context.Context, ev *saledomain.SaleCompleted) (bool, error) {
	k := keysFor(p.DateOf(ev))

	items := 0
	for _, l := range ev.Items {
		items += l.Quantity
	}
	args := []interface{}{
		ev.SaleID,
		ev.TotalAmount.String(),
		ev.DiscountAmount.String(),
		items,
		int64(p.ttl / time.Second),
	}
	for _, l := range ev.Items {
		args = append(args, l.ProductID, l.TotalPrice.String(), l.ProductName, l.Quantity)
	}

	res, err := p.client.RunScript(ctx, applySaleScript,
		[]string{k.seen, k.totals, k.revenue, k.quantity, k.names}, args...)
	if err != nil {
		return false, fmt.Errorf("apply sale %s to live projection: %w", ev.SaleID, err)
	}
	applied, _ := res.(int64)
	return applied == 1, nil
}

func (p *RedisLiveProjection) Snapshot(ctx context.Context, date string) (*domain.LiveSnapshot, error) {
	k := keysFor(date)
	rdb := p.client.GetClient()

	var (
		totals   *goredis.MapStringStringCmd
		revenue  *goredis.ZSliceCmd
		quantity *goredis.MapStringStringCmd
		names    *goredis.MapStringStringCmd
	)
	// 同一个 slot 的读，用 pipeline 一次往返
	_, err := rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		totals = pipe.HGetAll(ctx, k.totals)
		revenue = pipe.ZRevRangeWithScores(ctx, k.revenue, 0, int64(p.topN-1))
		quantity = pipe.HGetAll(ctx, k.quantity)
		names = pipe.HGetAll(ctx, k.names)
		return nil
	})
	if err != nil && err != goredis.Nil {
		return nil, fmt.Errorf("read live snapshot %s: %w", date, err)
	}

	t := totals.Val()
	snap := &domain.LiveSnapshot{
		Date:        date,
		Sales:       parseDecimal(t["sales"]).Round(2),
		Discount:    parseDecimal(t["discount"]).Round(2),
		Orders:      parseInt(t["orders"]),
		Items:       parseInt(t["items"]),
		TopProducts: []domain.ProductSummary{},
	}
	if snap.Orders > 0 {
		snap.AvgOrderValue = snap.Sales.Div(decimal.NewFromInt(int64(snap.Orders))).Round(2)
	}

	q, n := quantity.Val(), names.Val()
	for _, z := range revenue.Val() {
		id, _ := z.Member.(string)
		snap.TopProducts = append(snap.TopProducts, domain.ProductSummary{
			ProductID:   id,
			ProductName: n[id],
			Quantity:    parseInt(q[id]),
			Revenue:     decimal.NewFromFloat(z.Score).Round(2),
		})
	}
	return snap, nil
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
