package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// PromotionModel 对应数据库中的 promotions 表
type PromotionModel struct {
	ID          string          `gorm:"primaryKey;size:36"`
	Name        string          `gorm:"size:255;not null"`
	Description string          `gorm:"type:text"`
	Type        string          `gorm:"size:20;not null"`
	Value       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MinAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null;index:idx_promotions_active_min,priority:2"`
	StartDate   time.Time       `gorm:"not null"`
	EndDate     *time.Time
	IsActive    bool `gorm:"not null;index:idx_promotions_active_min,priority:1"`
	UsageCount  int  `gorm:"not null;default:0"`
	MaxUsage    *int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName 指定 GORM 应该使用的表名
func (PromotionModel) TableName() string {
	return "promotions"
}
