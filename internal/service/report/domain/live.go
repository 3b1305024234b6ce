package domain

import (
	"context"

	saledomain "nexuspos/internal/service/sale/domain"

	"github.com/shopspring/decimal"
)

// LiveSnapshot 是当天的实时销售汇总，由 SaleCompleted 事件累加得到。
type LiveSnapshot struct {
	Date          string           `json:"date"`
	Sales         decimal.Decimal  `json:"sales"`
	Discount      decimal.Decimal  `json:"discount"`
	Orders        int              `json:"orders"`
	Items         int              `json:"items"`
	AvgOrderValue decimal.Decimal  `json:"avg_order_value"`
	TopProducts   []ProductSummary `json:"top_products"`
}

// LiveProjection 是实时汇总的存储。
// Apply 对同一笔销售只生效一次，重复投递时返回 false。
type LiveProjection interface {
	Apply(ctx context.Context, ev *saledomain.SaleCompleted) (bool, error)
	Snapshot(ctx context.Context, date string) (*LiveSnapshot, error)
}

// LiveUpdate 是推送给看板的消息
type LiveUpdate struct {
	SaleID        string          `json:"sale_id"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	PromotionID   string          `json:"promotion_id,omitempty"`
	Items         int             `json:"items"`
	LowStock      []string        `json:"low_stock,omitempty"`
	Today         *LiveSnapshot   `json:"today,omitempty"`
}

// NewLiveUpdate 从事件构造推送消息，today 可以为 nil。
func NewLiveUpdate(ev *saledomain.SaleCompleted, today *LiveSnapshot) LiveUpdate {
	u := LiveUpdate{
		SaleID:        ev.SaleID,
		Total:         ev.TotalAmount,
		PaymentMethod: string(ev.PaymentMethod),
		PromotionID:   ev.PromotionID,
		Today:         today,
	}
	for _, l := range ev.Items {
		u.Items += l.Quantity
	}
	for _, n := range ev.LowStock {
		u.LowStock = append(u.LowStock, n.Name)
	}
	return u
}
