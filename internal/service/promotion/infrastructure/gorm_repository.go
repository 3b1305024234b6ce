package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nexuspos/internal/service/promotion/domain"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// GormPromotionRepository 是 PromotionRepository 的 GORM 实现
type GormPromotionRepository struct {
	db *gorm.DB
}

// NewGormPromotionRepository 创建一个新的 GORM 仓储实例
func NewGormPromotionRepository(db *gorm.DB) *GormPromotionRepository {
	return &GormPromotionRepository{db: db}
}

func (r *GormPromotionRepository) Create(ctx context.Context, p *domain.Promotion) error {
	model := FromDomainPromotion(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return pkgerrors.Wrapf(err, "create promotion %s", p.ID)
	}
	p.CreatedAt, p.UpdatedAt = model.CreatedAt, model.UpdatedAt
	return nil
}

// Update 覆盖管理端可编辑的字段。usage_count 只由结账流程修改，这里不碰。
func (r *GormPromotionRepository) Update(ctx context.Context, p *domain.Promotion) error {
	model := FromDomainPromotion(p)
	q := r.db.WithContext(ctx).Model(&PromotionModel{ID: p.ID})
	if p.MaxUsage != nil {
		// 结账可能在读取之后又用掉了名额，上限不能低于库里的 usage_count
		q = q.Where("usage_count <= ?", *p.MaxUsage)
	}
	result := q.Select("name", "description", "type", "value", "min_amount", "start_date", "end_date", "is_active", "max_usage", "updated_at").
		Updates(model)
	if result.Error != nil {
		return pkgerrors.Wrapf(result.Error, "update promotion %s", p.ID)
	}
	if result.RowsAffected == 0 {
		if p.MaxUsage == nil {
			return domain.ErrPromotionNotFound
		}
		current, err := r.FindByID(ctx, p.ID)
		if err != nil {
			return err
		}
		if current.UsageCount > *p.MaxUsage {
			return fmt.Errorf("%w: max_usage %d is below current usage_count %d", domain.ErrInvalidPromotion, *p.MaxUsage, current.UsageCount)
		}
	}
	return nil
}

// FindByID 按 ID 读取，不存在时返回 domain.ErrPromotionNotFound
func (r *GormPromotionRepository) FindByID(ctx context.Context, id string) (*domain.Promotion, error) {
	var model PromotionModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPromotionNotFound
		}
		return nil, pkgerrors.Wrapf(err, "find promotion %s", id)
	}
	return ToDomainPromotion(&model), nil
}

func (r *GormPromotionRepository) List(ctx context.Context) ([]domain.Promotion, error) {
	var models []PromotionModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list promotions")
	}
	return toDomainList(models), nil
}

func (r *GormPromotionRepository) ListActive(ctx context.Context, now time.Time) ([]domain.Promotion, error) {
	now = now.UTC()
	var models []PromotionModel
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("start_date <= ?", now).
		Where("end_date IS NULL OR end_date >= ?", now).
		Order("min_amount ASC").
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list active promotions")
	}
	return toDomainList(models), nil
}

func (r *GormPromotionRepository) SetActive(ctx context.Context, id string, active bool) error {
	result := r.db.WithContext(ctx).Model(&PromotionModel{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "updated_at": time.Now()})
	if result.Error != nil {
		return pkgerrors.Wrapf(result.Error, "set promotion %s active=%v", id, active)
	}
	if result.RowsAffected == 0 {
		return domain.ErrPromotionNotFound
	}
	return nil
}

func (r *GormPromotionRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&PromotionModel{})
	if result.Error != nil {
		return pkgerrors.Wrapf(result.Error, "delete promotion %s", id)
	}
	if result.RowsAffected == 0 {
		return domain.ErrPromotionNotFound
	}
	return nil
}

func toDomainList(models []PromotionModel) []domain.Promotion {
	out := make([]domain.Promotion, 0, len(models))
	for i := range models {
		out = append(out, *ToDomainPromotion(&models[i]))
	}
	return out
}

// IncrementUsageTx 在给定事务里把促销的使用次数加一。
// 达到 max_usage 时条件更新不修改任何行，返回 domain.ErrUsageCapExceeded。
func IncrementUsageTx(tx *gorm.DB, id string) error {
	result := tx.Model(&PromotionModel{}).
		Where("id = ? AND (max_usage IS NULL OR usage_count < max_usage)", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
	if result.Error != nil {
		return pkgerrors.Wrapf(result.Error, "increment usage of promotion %s", id)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&PromotionModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return pkgerrors.Wrapf(err, "find promotion %s", id)
	}
	if count == 0 {
		return domain.ErrPromotionNotFound
	}
	return domain.ErrUsageCapExceeded
}
