package port

import (
	"context"

	"nexuspos/internal/service/sale/domain"
)

// SalePublisher 发布销售完成事件
type SalePublisher interface {
	PublishSaleCompleted(ctx context.Context, ev *domain.SaleCompleted) error
}
