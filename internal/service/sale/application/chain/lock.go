package chain

import (
	"sort"

	"nexuspos/internal/service/sale/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const StepLock = "lock"

// LockHandler 在配置了串行化器时，按固定顺序锁住涉及的商品和促销。
// 锁在整条链结束后由 ReleaseAll 释放。这是提交前最后一个响应取消的步骤。
type LockHandler struct {
	NextHandler
}

func (h *LockHandler) Handle(checkoutCtx *CheckoutContext) error {
	if checkoutCtx.Locker == nil {
		return h.executeNext(checkoutCtx)
	}

	ctx, span := checkoutCtx.Tracer.Start(checkoutCtx.Ctx, "checkout.Lock")
	keys := LockKeys(checkoutCtx.Sale)
	span.SetAttributes(attribute.StringSlice("lock.keys", keys))

	for _, key := range keys {
		unlock, err := checkoutCtx.Locker.Lock(ctx, key)
		if err != nil {
			ce := cancelled(checkoutCtx, StepLock)
			if ce == nil {
				ce = &domain.CheckoutError{Kind: domain.KindCheckoutFailed, Step: StepLock, Reason: "acquire " + key, Err: err}
			}
			span.RecordError(ce)
			span.SetStatus(codes.Error, string(ce.Kind))
			span.End()
			return ce
		}
		checkoutCtx.AddRelease(unlock)
	}

	if ce := cancelled(checkoutCtx, StepLock); ce != nil {
		span.RecordError(ce)
		span.End()
		return ce
	}
	span.AddEvent("Locks acquired.")
	span.End()

	return h.executeNext(checkoutCtx)
}

// LockKeys 返回排好序的锁键：先商品后促销，避免两个结账互相等待。
func LockKeys(s *domain.Sale) []string {
	keys := make([]string, 0, len(s.Items)+1)
	for _, item := range s.Items {
		keys = append(keys, "product:"+item.ProductID)
	}
	sort.Strings(keys)
	if s.PromotionID != nil {
		keys = append(keys, "promotion:"+*s.PromotionID)
	}
	return keys
}
