package application

import (
	"time"

	"nexuspos/internal/service/promotion/domain"

	"github.com/shopspring/decimal"
)

// PromotionRequest 是创建和更新促销的请求体
type PromotionRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Type        string          `json:"type" binding:"required,oneof=percentage fixed"`
	Value       decimal.Decimal `json:"value"`
	MinAmount   decimal.Decimal `json:"min_amount"`
	StartDate   *time.Time      `json:"start_date"` // 为空时从现在开始
	EndDate     *time.Time      `json:"end_date"`
	IsActive    *bool           `json:"is_active"` // 创建时为空默认启用
	MaxUsage    *int            `json:"max_usage"`
}

// PromotionResponse 是返回给管理端的促销视图
type PromotionResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Value       decimal.Decimal `json:"value"`
	MinAmount   decimal.Decimal `json:"min_amount"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	IsActive    bool            `json:"is_active"`
	UsageCount  int             `json:"usage_count"`
	MaxUsage    *int            `json:"max_usage,omitempty"`
	Summary     string          `json:"summary"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PromotionQuote 是某个促销在给定小计上的试算结果
type PromotionQuote struct {
	PromotionID string          `json:"promotion_id"`
	Name        string          `json:"name"`
	Summary     string          `json:"summary"`
	Discount    decimal.Decimal `json:"discount"`
}

func ToPromotionResponse(p *domain.Promotion) PromotionResponse {
	return PromotionResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Type:        string(p.Type),
		Value:       p.Value,
		MinAmount:   p.MinAmount,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		IsActive:    p.IsActive,
		UsageCount:  p.UsageCount,
		MaxUsage:    p.MaxUsage,
		Summary:     domain.Describe(*p),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// apply 把请求写入 p。未提供的开始时间和启用状态使用给定的默认值。
func (r *PromotionRequest) apply(p *domain.Promotion, defaultStart time.Time, defaultActive bool) {
	p.Name = r.Name
	p.Description = r.Description
	p.Type = domain.DiscountType(r.Type)
	p.Value = r.Value
	p.MinAmount = r.MinAmount
	p.StartDate = defaultStart
	if r.StartDate != nil {
		p.StartDate = *r.StartDate
	}
	p.EndDate = r.EndDate
	p.IsActive = defaultActive
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	p.MaxUsage = r.MaxUsage
}
