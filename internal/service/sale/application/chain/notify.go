package chain

import (
	"context"

	"nexuspos/internal/pkg/logger"
	"nexuspos/internal/service/sale/domain"

	"go.opentelemetry.io/otel/attribute"
)

// NotifyHandler 是链的最后一步，发布销售完成事件。
// 销售已经提交，发布失败只记录日志和 span，不让结账失败。
type NotifyHandler struct {
	NextHandler
}

func (h *NotifyHandler) Handle(checkoutCtx *CheckoutContext) error {
	for _, n := range checkoutCtx.LowStock {
		logger.Ctx(checkoutCtx.Ctx).Warn().Str("product", n.ProductID).Str("name", n.Name).Int("remaining", n.Remaining).Msg("Product is low on stock")
	}
	if checkoutCtx.Publisher == nil {
		return h.executeNext(checkoutCtx)
	}

	ctx, span := checkoutCtx.Tracer.Start(context.WithoutCancel(checkoutCtx.Ctx), "checkout.Notify")
	defer span.End()
	span.SetAttributes(attribute.String("messaging.system", "kafka"))

	ev := domain.NewSaleCompleted(checkoutCtx.NewID(), checkoutCtx.Sale, checkoutCtx.LowStock, checkoutCtx.Now())
	if err := checkoutCtx.Publisher.PublishSaleCompleted(ctx, ev); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("sale", checkoutCtx.Sale.ID).Msg("Failed to publish sale completed event")
		span.RecordError(err)
	} else {
		span.AddEvent("Sale completed event published.")
	}
	return h.executeNext(checkoutCtx)
}
