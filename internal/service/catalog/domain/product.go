// internal/service/catalog/domain/product.go
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultUnit          = "piece"
	DefaultMinStockLevel = 5
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrProductInactive   = errors.New("product is inactive")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrDuplicateSKU      = errors.New("sku already exists")
	ErrDuplicateBarcode  = errors.New("barcode already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockShortage 描述一次库存不足：哪个商品、剩多少、要多少。
// errors.Is(err, ErrInsufficientStock) 对它成立。
type StockShortage struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *StockShortage) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", name, e.Available, e.Requested)
}

func (e *StockShortage) Unwrap() error { return ErrInsufficientStock }

// Product 是商品目录中的一个商品，也是库存的载体。
type Product struct {
	ID            string
	Name          string
	Description   string
	SKU           string // 可选，非空时唯一
	Barcode       string // 可选，非空时唯一
	Category      string
	Unit          string
	ImageURL      string
	SellingPrice  decimal.Decimal
	CostPrice     decimal.Decimal
	StockQuantity int
	MinStockLevel int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Normalize 去掉首尾空白并补齐默认值。
func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.TrimSpace(p.SKU)
	p.Barcode = strings.TrimSpace(p.Barcode)
	p.Category = strings.TrimSpace(p.Category)
	p.Unit = strings.TrimSpace(p.Unit)
	if p.Unit == "" {
		p.Unit = DefaultUnit
	}
}

// Validate 校验商品字段。唯一性由仓储检查。
func (p *Product) Validate() error {
	var problems []string
	if p.Name == "" {
		problems = append(problems, "name is required")
	}
	if !p.SellingPrice.IsPositive() {
		problems = append(problems, "selling_price must be greater than 0")
	}
	if p.CostPrice.IsNegative() {
		problems = append(problems, "cost_price must not be negative")
	}
	if p.StockQuantity < 0 {
		problems = append(problems, "stock_quantity must not be negative")
	}
	if p.MinStockLevel < 0 {
		problems = append(problems, "min_stock_level must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidProduct, strings.Join(problems, "; "))
	}
	return nil
}

// IsLowStock 库存不高于预警线时为 true。
func (p Product) IsLowStock() bool {
	return p.StockQuantity <= p.MinStockLevel
}

// CanSell 检查商品能否按数量出售。
func (p Product) CanSell(quantity int) error {
	if !p.IsActive {
		return fmt.Errorf("%w: %s", ErrProductInactive, p.Name)
	}
	if p.StockQuantity < quantity {
		return &StockShortage{ProductID: p.ID, Name: p.Name, Available: p.StockQuantity, Requested: quantity}
	}
	return nil
}

// ProductFilter 是商品列表的查询条件。
type ProductFilter struct {
	ActiveOnly bool
	Category   string
	Search     string // 匹配名称、SKU、条码
}
