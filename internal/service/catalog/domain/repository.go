package domain

import "context"

// ProductRepository 是商品和库存流水的持久化端口。
type ProductRepository interface {
	// Create 和 Update 在 SKU 或条码重复时返回 ErrDuplicateSKU / ErrDuplicateBarcode。
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	FindByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	SetActive(ctx context.Context, id string, active bool) error
	// AdjustStock 原子地修改库存并写入流水，库存会变成负数时返回 *StockShortage。
	AdjustStock(ctx context.Context, m InventoryMovement) (*Product, error)
	ListMovements(ctx context.Context, productID string, limit int) ([]InventoryMovement, error)
	LowStock(ctx context.Context) ([]Product, error)
}
