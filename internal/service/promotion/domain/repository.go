package domain

import (
	"context"
	"time"
)

// PromotionRepository 是促销的持久化端口。
type PromotionRepository interface {
	Create(ctx context.Context, p *Promotion) error
	Update(ctx context.Context, p *Promotion) error
	FindByID(ctx context.Context, id string) (*Promotion, error)
	List(ctx context.Context) ([]Promotion, error)
	// ListActive 返回已启用且 now 落在有效期内的促销，按最低消费升序、ID 升序排列。
	// 次数是否用尽由调用方用 IsEligible 判断。
	ListActive(ctx context.Context, now time.Time) ([]Promotion, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}
