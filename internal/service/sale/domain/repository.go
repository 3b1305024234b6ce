package domain

import "context"

// SaleRepository 读取已提交的销售单。写入只发生在结账的工作单元里。
type SaleRepository interface {
	FindByID(ctx context.Context, id string) (*Sale, error)
}
