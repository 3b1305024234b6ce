package application

import (
	"context"
	"time"

	"nexuspos/internal/pkg/logger"
	"nexuspos/internal/service/promotion/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// PromotionService 定义了促销管理和查询的所有业务用例。
// 它同时是结账流程读取促销的入口。
type PromotionService struct {
	repo   domain.PromotionRepository
	tracer trace.Tracer
	now    func() time.Time

	// 收银高峰时大量并发请求同时拉取有效促销列表，合并成一次查询
	activeGroup singleflight.Group
}

// NewPromotionService 创建一个新的促销服务实例
func NewPromotionService(repo domain.PromotionRepository, tracer trace.Tracer) *PromotionService {
	return &PromotionService{
		repo:   repo,
		tracer: tracer,
		now:    time.Now,
	}
}

// WithClock 替换时钟，用于测试。
func (s *PromotionService) WithClock(now func() time.Time) *PromotionService {
	s.now = now
	return s
}

func (s *PromotionService) Create(ctx context.Context, req *PromotionRequest) (*domain.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.Create")
	defer span.End()

	p := &domain.Promotion{ID: uuid.New().String()}
	req.apply(p, s.now(), true)
	if err := p.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create promotion")
		return nil, err
	}
	span.SetAttributes(attribute.String("promotion.id", p.ID))
	logger.Ctx(ctx).Info().Str("promotion", p.ID).Str("name", p.Name).Msg("Promotion created")
	return p, nil
}

func (s *PromotionService) Update(ctx context.Context, id string, req *PromotionRequest) (*domain.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.Update", trace.WithAttributes(attribute.String("promotion.id", id)))
	defer span.End()

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	req.apply(p, p.StartDate, p.IsActive)
	if err := p.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update promotion")
		return nil, err
	}
	return p, nil
}

func (s *PromotionService) Get(ctx context.Context, id string) (*domain.Promotion, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *PromotionService) List(ctx context.Context) ([]domain.Promotion, error) {
	return s.repo.List(ctx)
}

func (s *PromotionService) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	logger.Ctx(ctx).Info().Str("promotion", id).Bool("active", active).Msg("Promotion toggled")
	return nil
}

func (s *PromotionService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// ListActivePromotions 返回当前有效期内已启用的促销，按最低消费升序。
// 每个调用方拿到的是独立的切片副本。
func (s *PromotionService) ListActivePromotions(ctx context.Context) ([]domain.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.ListActive")
	defer span.End()

	// 共享的查询不随某一个调用方取消
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := s.activeGroup.Do("active", func() (interface{}, error) {
		return s.repo.ListActive(flightCtx, s.now())
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("singleflight.shared", shared))

	list := v.([]domain.Promotion)
	out := make([]domain.Promotion, len(list))
	copy(out, list)
	return out, nil
}

// GetPromotion 读取单个促销的最新状态。
func (s *PromotionService) GetPromotion(ctx context.Context, id string) (*domain.Promotion, error) {
	return s.repo.FindByID(ctx, id)
}

// Quote 列出对该小计可用的促销及其折扣，并给出最优的一个（可能为 nil）。
func (s *PromotionService) Quote(ctx context.Context, subtotal decimal.Decimal) ([]PromotionQuote, *PromotionQuote, error) {
	active, err := s.ListActivePromotions(ctx)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()

	applicable := domain.Applicable(active, subtotal, now)
	quotes := make([]PromotionQuote, 0, len(applicable))
	for _, p := range applicable {
		quotes = append(quotes, PromotionQuote{
			PromotionID: p.ID,
			Name:        p.Name,
			Summary:     domain.Describe(p),
			Discount:    domain.ComputeDiscount(p, subtotal).Round(2),
		})
	}

	var best *PromotionQuote
	if p, ok := domain.SelectBest(active, subtotal, now); ok {
		for i := range quotes {
			if quotes[i].PromotionID == p.ID {
				best = &quotes[i]
				break
			}
		}
	}
	return quotes, best, nil
}
