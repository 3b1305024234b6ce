package port

import (
	"context"

	catalog "nexuspos/internal/service/catalog/domain"
)

// CatalogReader 为结账提供商品的最新快照，而不是缓存值。
type CatalogReader interface {
	ListActiveProducts(ctx context.Context) ([]catalog.Product, error)
	// GetProduct 在商品不存在时返回 catalog.ErrProductNotFound
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
}
