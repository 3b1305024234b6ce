package chain

import (
	"errors"

	promotion "nexuspos/internal/service/promotion/domain"
	"nexuspos/internal/service/sale/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const StepPromotion = "promotion"

// PromotionHandler 确定本次结账使用的促销。
// 手工指定的促销按最新状态和当前小计重新校验，不满足时结账失败，不会悄悄去掉折扣。
type PromotionHandler struct {
	NextHandler
}

func (h *PromotionHandler) Handle(checkoutCtx *CheckoutContext) error {
	ctx, span := checkoutCtx.Tracer.Start(checkoutCtx.Ctx, "checkout.Promotion")
	defer span.End()

	fail := func(err *domain.CheckoutError) error {
		err.Step = StepPromotion
		span.RecordError(err)
		span.SetStatus(codes.Error, string(err.Kind))
		return err
	}

	subtotal := checkoutCtx.Cart.Subtotal()
	checkoutCtx.Subtotal = subtotal
	now := checkoutCtx.Now()
	opts := checkoutCtx.Options

	switch {
	case opts.PromotionID != "":
		span.SetAttributes(attribute.String("promotion.id", opts.PromotionID), attribute.String("promotion.mode", "manual"))

		p, err := checkoutCtx.Promotions.GetPromotion(ctx, opts.PromotionID)
		if err != nil {
			if errors.Is(err, promotion.ErrPromotionNotFound) {
				return fail(&domain.CheckoutError{
					Kind: domain.KindPromotionNotApplicable, PromotionID: opts.PromotionID,
					Reason: "not found", Err: err,
				})
			}
			return fail(&domain.CheckoutError{Kind: domain.KindCheckoutFailed, PromotionID: opts.PromotionID, Err: err})
		}

		if reason := p.IneligibilityReason(subtotal, now); reason != "" {
			ce := &domain.CheckoutError{
				Kind: domain.KindPromotionNotApplicable, PromotionID: p.ID,
				Reason: reason, Err: promotion.ErrNotApplicable,
			}
			if reason == promotion.ReasonCapReached {
				ce.Kind = domain.KindUsageCapExceeded
				ce.Err = promotion.ErrUsageCapExceeded
			}
			return fail(ce)
		}
		checkoutCtx.Promotion = p

	case opts.AutoPromotion:
		span.SetAttributes(attribute.String("promotion.mode", "auto"))

		active, err := checkoutCtx.Promotions.ListActivePromotions(ctx)
		if err != nil {
			return fail(&domain.CheckoutError{Kind: domain.KindCheckoutFailed, Reason: "load active promotions", Err: err})
		}
		if best, ok := promotion.SelectBest(active, subtotal, now); ok {
			checkoutCtx.Promotion = best
			span.SetAttributes(attribute.String("promotion.id", best.ID))
		}
	}

	calc := promotion.Calculate(checkoutCtx.Promotion, subtotal)
	calc.DiscountAmount = calc.DiscountAmount.Round(2)
	checkoutCtx.Discount = calc

	if err := cancelled(checkoutCtx, StepPromotion); err != nil {
		return fail(err)
	}
	span.AddEvent("Promotion resolved.", traceDiscount(calc))
	return h.executeNext(checkoutCtx)
}
