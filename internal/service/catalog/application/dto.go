package application

import (
	"time"

	"nexuspos/internal/service/catalog/domain"

	"github.com/shopspring/decimal"
)

// ProductRequest 是创建和更新商品的请求体。
// price/cost/stock 是旧客户端使用的别名，只在这里映射到标准字段。
type ProductRequest struct {
	Name          string           `json:"name" binding:"required"`
	Description   string           `json:"description"`
	SKU           string           `json:"sku"`
	Barcode       string           `json:"barcode"`
	Category      string           `json:"category"`
	Unit          string           `json:"unit"`
	ImageURL      string           `json:"image_url"`
	SellingPrice  *decimal.Decimal `json:"selling_price"`
	CostPrice     *decimal.Decimal `json:"cost_price"`
	StockQuantity *int             `json:"stock_quantity"`
	MinStockLevel *int             `json:"min_stock_level"`
	IsActive      *bool            `json:"is_active"`

	Price *decimal.Decimal `json:"price"`
	Cost  *decimal.Decimal `json:"cost"`
	Stock *int             `json:"stock"`
}

// canonical 合并别名字段，标准字段优先。
func (r *ProductRequest) canonical() {
	if r.SellingPrice == nil {
		r.SellingPrice = r.Price
	}
	if r.CostPrice == nil {
		r.CostPrice = r.Cost
	}
	if r.StockQuantity == nil {
		r.StockQuantity = r.Stock
	}
	r.Price, r.Cost, r.Stock = nil, nil, nil
}

// applyTo 写入商品资料。库存只在创建时生效。
func (r *ProductRequest) applyTo(p *domain.Product, defaultMinStock int, creating bool) {
	r.canonical()
	p.Name = r.Name
	p.Description = r.Description
	p.SKU = r.SKU
	p.Barcode = r.Barcode
	p.Category = r.Category
	p.Unit = r.Unit
	p.ImageURL = r.ImageURL
	if r.SellingPrice != nil {
		p.SellingPrice = *r.SellingPrice
	}
	if r.CostPrice != nil {
		p.CostPrice = *r.CostPrice
	}
	if creating {
		p.MinStockLevel = defaultMinStock
		p.IsActive = true
		if r.StockQuantity != nil {
			p.StockQuantity = *r.StockQuantity
		}
	}
	if r.MinStockLevel != nil {
		p.MinStockLevel = *r.MinStockLevel
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	p.Normalize()
}

// StockAdjustmentRequest 是手工调整库存的请求体
type StockAdjustmentRequest struct {
	MovementType string `json:"movement_type" binding:"required,oneof=in out adjustment"`
	Quantity     int    `json:"quantity"`
	Reason       string `json:"reason"`
	Notes        string `json:"notes"`
}

type ProductResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	SKU           string          `json:"sku,omitempty"`
	Barcode       string          `json:"barcode,omitempty"`
	Category      string          `json:"category"`
	Unit          string          `json:"unit"`
	ImageURL      string          `json:"image_url,omitempty"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	StockQuantity int             `json:"stock_quantity"`
	MinStockLevel int             `json:"min_stock_level"`
	LowStock      bool            `json:"low_stock"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type MovementResponse struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	MovementType string    `json:"movement_type"`
	Quantity     int       `json:"quantity"`
	Reason       string    `json:"reason"`
	ReferenceID  string    `json:"reference_id,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func ToProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		SKU:           p.SKU,
		Barcode:       p.Barcode,
		Category:      p.Category,
		Unit:          p.Unit,
		ImageURL:      p.ImageURL,
		SellingPrice:  p.SellingPrice,
		CostPrice:     p.CostPrice,
		StockQuantity: p.StockQuantity,
		MinStockLevel: p.MinStockLevel,
		LowStock:      p.IsLowStock(),
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func ToMovementResponse(m domain.InventoryMovement) MovementResponse {
	return MovementResponse{
		ID:           m.ID,
		ProductID:    m.ProductID,
		MovementType: string(m.MovementType),
		Quantity:     m.Quantity,
		Reason:       m.Reason,
		ReferenceID:  m.ReferenceID,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
	}
}
