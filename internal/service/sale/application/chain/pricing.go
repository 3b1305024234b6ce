package chain

import (
	promotion "nexuspos/internal/service/promotion/domain"
	"nexuspos/internal/service/sale/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const StepPricing = "pricing"

// PricingHandler 计算最终金额并构造销售单，此时还没有任何写入。
type PricingHandler struct {
	NextHandler
}

func (h *PricingHandler) Handle(checkoutCtx *CheckoutContext) error {
	_, span := checkoutCtx.Tracer.Start(checkoutCtx.Ctx, "checkout.Pricing")
	defer span.End()

	draft := domain.SaleDraft{
		ID:                 checkoutCtx.NewID(),
		Items:              checkoutCtx.Cart.Items(),
		DiscountAmount:     checkoutCtx.Discount.DiscountAmount,
		DiscountPercentage: checkoutCtx.Discount.DiscountPercentage,
		PaymentMethod:      checkoutCtx.Options.PaymentMethod,
		Notes:              checkoutCtx.Options.Notes,
		TaxRate:            checkoutCtx.Settings.TaxRate,
		CreatedAt:          checkoutCtx.Now(),
	}
	if p := checkoutCtx.Promotion; p != nil {
		draft.PromotionID = p.ID
		draft.PromotionName = p.Name
	}

	sale, err := domain.NewSale(draft)
	if err != nil {
		ce := &domain.CheckoutError{Kind: domain.KindValidation, Step: StepPricing, Reason: err.Error(), Err: err}
		span.RecordError(ce)
		span.SetStatus(codes.Error, string(ce.Kind))
		return ce
	}
	for i := range sale.Items {
		sale.Items[i].ID = checkoutCtx.NewID()
	}
	checkoutCtx.Sale = sale

	span.SetAttributes(
		attribute.String("sale.id", sale.ID),
		attribute.String("sale.subtotal", sale.Subtotal.StringFixed(2)),
		attribute.String("sale.total", sale.TotalAmount.StringFixed(2)),
	)
	return h.executeNext(checkoutCtx)
}

func traceDiscount(calc promotion.DiscountCalculation) trace.EventOption {
	return trace.WithAttributes(
		attribute.String("discount.amount", calc.DiscountAmount.StringFixed(2)),
		attribute.String("discount.percentage", calc.DiscountPercentage.StringFixed(2)),
		attribute.String("promotion.name", calc.PromotionName),
	)
}
