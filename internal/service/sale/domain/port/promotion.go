package port

import (
	"context"

	promotion "nexuspos/internal/service/promotion/domain"
)

// PromotionReader 读取促销。ListActivePromotions 按最低消费升序，其次按 ID。
type PromotionReader interface {
	ListActivePromotions(ctx context.Context) ([]promotion.Promotion, error)
	GetPromotion(ctx context.Context, id string) (*promotion.Promotion, error)
}
