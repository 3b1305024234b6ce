package port

import (
	"context"

	catalog "nexuspos/internal/service/catalog/domain"
	"nexuspos/internal/service/sale/domain"
)

// UnitOfWork 把一次结账的全部写入放在同一个原子单元里。
// fn 返回错误时所有写入都不生效。
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx Tx) error) error
}

// Tx 是工作单元内可用的写操作。
type Tx interface {
	// CreateSale 同时写入销售单和全部明细
	CreateSale(ctx context.Context, s *domain.Sale) error
	// AdjustStock 把库存加上 delta 并返回剩余库存；结果会小于 0 时拒绝，
	// 返回 *catalog.StockShortage（errors.Is catalog.ErrInsufficientStock）。
	AdjustStock(ctx context.Context, productID string, delta int) (int, error)
	// IncrementUsage 把促销使用次数加一，已达上限时返回 promotion.ErrUsageCapExceeded
	IncrementUsage(ctx context.Context, promotionID string) error
	RecordMovement(ctx context.Context, m catalog.InventoryMovement) error
}
