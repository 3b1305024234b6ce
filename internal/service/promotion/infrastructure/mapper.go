package infrastructure

import (
	"time"

	"nexuspos/internal/service/promotion/domain"
)

// ToDomainPromotion 将数据库模型转换为领域模型
func ToDomainPromotion(model *PromotionModel) *domain.Promotion {
	if model == nil {
		return nil
	}
	return &domain.Promotion{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		Type:        domain.DiscountType(model.Type),
		Value:       model.Value,
		MinAmount:   model.MinAmount,
		StartDate:   model.StartDate,
		EndDate:     model.EndDate,
		IsActive:    model.IsActive,
		UsageCount:  model.UsageCount,
		MaxUsage:    model.MaxUsage,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// FromDomainPromotion 将领域模型转换为数据库模型。
// 时间统一存 UTC，避免不同时区的值在 SQLite 中按字符串比较出错。
func FromDomainPromotion(p *domain.Promotion) *PromotionModel {
	if p == nil {
		return nil
	}
	return &PromotionModel{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Type:        string(p.Type),
		Value:       p.Value,
		MinAmount:   p.MinAmount,
		StartDate:   p.StartDate.UTC(),
		EndDate:     utcPtr(p.EndDate),
		IsActive:    p.IsActive,
		UsageCount:  p.UsageCount,
		MaxUsage:    p.MaxUsage,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
