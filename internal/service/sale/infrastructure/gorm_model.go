package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleModel 对应 sales 表
type SaleModel struct {
	ID                 string          `gorm:"primaryKey;size:36"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PromotionID        *string         `gorm:"size:36;index"`
	PromotionName      string          `gorm:"size:255"`
	PaymentMethod      string          `gorm:"size:20;not null"`
	Status             string          `gorm:"size:20;not null;index"`
	Notes              string          `gorm:"type:text"`
	CreatedAt          time.Time       `gorm:"index"`
	Items              []SaleItemModel `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

func (SaleModel) TableName() string {
	return "sales"
}

// SaleItemModel 对应 sale_items 表
type SaleItemModel struct {
	ID          string          `gorm:"primaryKey;size:36"`
	SaleID      string          `gorm:"size:36;not null;index"`
	Line        int             `gorm:"not null"` // 明细在销售单中的顺序
	ProductID   string          `gorm:"size:36;not null;index"`
	ProductName string          `gorm:"size:255;not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (SaleItemModel) TableName() string {
	return "sale_items"
}

// Models 返回需要迁移的全部模型
func Models() []interface{} {
	return []interface{}{&SaleModel{}, &SaleItemModel{}}
}
