package application

import (
	"context"
	"errors"
	"time"

	"nexuspos/internal/pkg/logger"
	"nexuspos/internal/pkg/metrics"
	catalog "nexuspos/internal/service/catalog/domain"
	promotion "nexuspos/internal/service/promotion/domain"
	"nexuspos/internal/service/sale/application/chain"
	"nexuspos/internal/service/sale/domain"
	"nexuspos/internal/service/sale/domain/port"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CheckoutService 编排结账流程，并提供购物车构建、试算和销售单查询。
type CheckoutService struct {
	catalog    port.CatalogReader
	promotions port.PromotionReader
	uow        port.UnitOfWork
	sales      domain.SaleRepository
	locker     port.Locker
	publisher  port.SalePublisher
	tracer     trace.Tracer
	settings   chain.Settings

	autoPromotion bool
	now           func() time.Time
	newID         func() string
	chain         chain.Handler
}

func NewCheckoutService(
	catalogReader port.CatalogReader,
	promotions port.PromotionReader,
	uow port.UnitOfWork,
	sales domain.SaleRepository,
	tracer trace.Tracer,
	settings chain.Settings,
) *CheckoutService {
	return &CheckoutService{
		catalog:    catalogReader,
		promotions: promotions,
		uow:        uow,
		sales:      sales,
		tracer:     tracer,
		settings:   settings,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
		chain:      chain.Build(),
	}
}

// WithLocker 为没有条件更新的存储启用按 ID 串行化
func (s *CheckoutService) WithLocker(l port.Locker) *CheckoutService {
	s.locker = l
	return s
}

func (s *CheckoutService) WithPublisher(p port.SalePublisher) *CheckoutService {
	s.publisher = p
	return s
}

func (s *CheckoutService) WithClock(now func() time.Time) *CheckoutService {
	s.now = now
	return s
}

// WithAutoPromotion 设置请求未指明时是否自动选择最优促销
func (s *CheckoutService) WithAutoPromotion(auto bool) *CheckoutService {
	s.autoPromotion = auto
	return s
}

// AutoPromotionDefault 返回门店的默认促销策略
func (s *CheckoutService) AutoPromotionDefault() bool {
	return s.autoPromotion
}

// Checkout 把购物车变成一张已提交的销售单。失败时总是返回 *domain.CheckoutError。
func (s *CheckoutService) Checkout(ctx context.Context, cart *domain.Cart, opts domain.CheckoutOptions) (*domain.Sale, error) {
	ctx, span := s.tracer.Start(ctx, "app.Checkout")
	defer span.End()
	start := time.Now()

	if opts.PaymentMethod == "" {
		opts.PaymentMethod = domain.PaymentCash
	}

	checkoutCtx := &chain.CheckoutContext{
		Ctx:        ctx,
		Tracer:     s.tracer,
		Cart:       cart,
		Options:    opts,
		Settings:   s.settings,
		Now:        s.now,
		NewID:      s.newID,
		Catalog:    s.catalog,
		Promotions: s.promotions,
		UnitOfWork: s.uow,
		Locker:     s.locker,
		Publisher:  s.publisher,
	}
	defer checkoutCtx.ReleaseAll()

	err := s.chain.Handle(checkoutCtx)
	metrics.CheckoutDuration.Observe(time.Since(start).Seconds())
	metrics.CheckoutTotal.WithLabelValues(outcome(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout failed")
		level := zerolog.WarnLevel
		if errors.Is(err, domain.ErrCheckoutFailed) {
			level = zerolog.ErrorLevel
		}
		logger.Ctx(ctx).WithLevel(level).Err(err).Msg("Checkout rejected")
		return nil, err
	}

	sale := checkoutCtx.Sale
	metrics.SaleAmount.Observe(sale.TotalAmount.InexactFloat64())
	span.SetAttributes(attribute.String("sale.id", sale.ID), attribute.Int("commit.attempts", checkoutCtx.Attempts))
	logger.Ctx(ctx).Info().
		Str("sale", sale.ID).
		Str("total", sale.TotalAmount.StringFixed(2)).
		Str("discount", sale.DiscountAmount.StringFixed(2)).
		Str("payment", string(sale.PaymentMethod)).
		Msg("Checkout completed")
	return sale, nil
}

// BuildCart 用目录当前售价构建购物车。库存在结账时才检查。
func (s *CheckoutService) BuildCart(ctx context.Context, lines []CartLine) (*domain.Cart, error) {
	cart := domain.NewCart()
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, &domain.CheckoutError{
				Kind: domain.KindValidation, Step: "cart", ProductID: line.ProductID,
				Reason: "quantity must be at least 1", Err: domain.ErrInvalidQuantity,
			}
		}
		p, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, &domain.CheckoutError{
					Kind: domain.KindValidation, Step: "cart", ProductID: line.ProductID,
					Reason: "product not found", Err: err,
				}
			}
			return nil, &domain.CheckoutError{Kind: domain.KindCheckoutFailed, Step: "cart", ProductID: line.ProductID, Err: err}
		}
		if !p.IsActive {
			return nil, &domain.CheckoutError{
				Kind: domain.KindValidation, Step: "cart", ProductID: p.ID, ProductName: p.Name,
				Reason: "product is inactive", Err: catalog.ErrProductInactive,
			}
		}
		if err := cart.Add(p.ID, p.Name, p.SellingPrice, line.Quantity); err != nil {
			return nil, &domain.CheckoutError{
				Kind: domain.KindValidation, Step: "cart", ProductID: p.ID, ProductName: p.Name,
				Reason: err.Error(), Err: err,
			}
		}
	}
	return cart, nil
}

// Quote 试算购物车：列出可用促销和各自折扣，给出最优促销。
// promotionID 非空时按该促销计算折扣，不可用时在结果里说明原因。
func (s *CheckoutService) Quote(ctx context.Context, cart *domain.Cart, promotionID string) (*QuoteResult, error) {
	ctx, span := s.tracer.Start(ctx, "app.Quote")
	defer span.End()

	subtotal := cart.Subtotal()
	now := s.now()
	active, err := s.promotions.ListActivePromotions(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &QuoteResult{
		Items:         cart.Items(),
		Subtotal:      subtotal,
		TotalQuantity: cart.TotalQuantity(),
		Applicable:    []QuotedPromotion{},
		Selected:      promotionID,
	}
	for _, p := range promotion.Applicable(active, subtotal, now) {
		result.Applicable = append(result.Applicable, QuotedPromotion{
			PromotionID: p.ID,
			Name:        p.Name,
			Summary:     promotion.Describe(p),
			Discount:    promotion.ComputeDiscount(p, subtotal).Round(2),
		})
	}

	best, ok := promotion.SelectBest(active, subtotal, now)
	if ok {
		result.BestPromotionID = best.ID
	}

	var chosen *promotion.Promotion
	if promotionID != "" {
		p, err := s.promotions.GetPromotion(ctx, promotionID)
		switch {
		case errors.Is(err, promotion.ErrPromotionNotFound):
			result.SelectedReason = "not found"
		case err != nil:
			span.RecordError(err)
			return nil, err
		default:
			if reason := p.IneligibilityReason(subtotal, now); reason != "" {
				result.SelectedReason = reason
			} else {
				chosen = p
			}
		}
	} else if ok && s.autoPromotion {
		chosen = best
	}

	result.Discount = promotion.Calculate(chosen, subtotal)
	result.Discount.DiscountAmount = result.Discount.DiscountAmount.Round(2)
	result.Total = subtotal.Sub(result.Discount.DiscountAmount)
	result.TaxAmount = domain.IncludedTax(result.Total, s.settings.TaxRate)
	return result, nil
}

func (s *CheckoutService) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	return s.sales.FindByID(ctx, id)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCompleted
	case errors.Is(err, domain.ErrValidation):
		return metrics.OutcomeValidation
	case errors.Is(err, domain.ErrPromotionNotApplicable):
		return metrics.OutcomePromotionNotApplicable
	case errors.Is(err, domain.ErrInsufficientStock):
		return metrics.OutcomeInsufficientStock
	case errors.Is(err, domain.ErrUsageCapExceeded):
		return metrics.OutcomeUsageCapExceeded
	default:
		return metrics.OutcomeFailed
	}
}
