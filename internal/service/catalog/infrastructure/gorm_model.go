package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductModel 对应数据库中的 products 表。
// SKU 和条码为空时存 NULL，唯一索引允许多个 NULL。
type ProductModel struct {
	ID            string          `gorm:"primaryKey;size:36"`
	Name          string          `gorm:"size:255;not null"`
	Description   string          `gorm:"type:text"`
	SKU           *string         `gorm:"column:sku;size:64;uniqueIndex:idx_products_sku"`
	Barcode       *string         `gorm:"size:64;uniqueIndex:idx_products_barcode"`
	Category      string          `gorm:"size:100;index"`
	Unit          string          `gorm:"size:32;not null"`
	ImageURL      string          `gorm:"size:512"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CostPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	StockQuantity int             `gorm:"not null;default:0"`
	MinStockLevel int             `gorm:"not null"`
	IsActive      bool            `gorm:"not null;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (ProductModel) TableName() string {
	return "products"
}

// InventoryMovementModel 对应 inventory_movements 表
type InventoryMovementModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	ProductID    string `gorm:"size:36;not null;index"`
	MovementType string `gorm:"size:20;not null"`
	Quantity     int    `gorm:"not null"`
	Reason       string `gorm:"size:255"`
	ReferenceID  string `gorm:"size:36;index"`
	Notes        string `gorm:"type:text"`
	CreatedAt    time.Time
}

func (InventoryMovementModel) TableName() string {
	return "inventory_movements"
}

// Models 返回需要迁移的全部模型
func Models() []interface{} {
	return []interface{}{&ProductModel{}, &InventoryMovementModel{}}
}
