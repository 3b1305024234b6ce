package chain

import (
	"context"
	"errors"
	"time"

	"nexuspos/internal/pkg/dberr"
	"nexuspos/internal/pkg/logger"
	"nexuspos/internal/pkg/metrics"
	catalog "nexuspos/internal/service/catalog/domain"
	promotion "nexuspos/internal/service/promotion/domain"
	"nexuspos/internal/service/sale/domain"
	"nexuspos/internal/service/sale/domain/port"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const StepCommit = "commit"

// CommitHandler 在一个工作单元里写入销售单、扣减库存、记录流水并占用促销次数。
// 一旦开始就不再响应调用方的取消，要么全部生效，要么全部回滚。
type CommitHandler struct {
	NextHandler
}

func (h *CommitHandler) Handle(checkoutCtx *CheckoutContext) error {
	detached := context.WithoutCancel(checkoutCtx.Ctx)
	if timeout := checkoutCtx.Settings.CommitTimeout; timeout > 0 {
		var cancel context.CancelFunc
		detached, cancel = context.WithTimeout(detached, timeout)
		defer cancel()
	}

	ctx, span := checkoutCtx.Tracer.Start(detached, "checkout.Commit")
	defer span.End()
	span.SetAttributes(attribute.String("sale.id", checkoutCtx.Sale.ID))

	var err error
	for attempt := 0; ; attempt++ {
		checkoutCtx.Attempts = attempt + 1
		err = checkoutCtx.UnitOfWork.Do(ctx, func(tx port.Tx) error {
			return h.apply(ctx, checkoutCtx, tx)
		})
		if err == nil || !dberr.IsTransient(err) || attempt >= checkoutCtx.Settings.MaxRetries {
			break
		}

		metrics.CommitRetries.Inc()
		span.AddEvent("Transient persistence error, retrying.", traceAttempt(attempt+1, err))
		logger.Ctx(ctx).Warn().Err(err).Str("sale", checkoutCtx.Sale.ID).Int("attempt", attempt+1).Msg("Commit failed with transient error, retrying")

		backoff := checkoutCtx.Settings.RetryBackoff * time.Duration(attempt+1)
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(backoff):
			continue
		}
		break
	}

	if err != nil {
		ce := classifyCommitError(checkoutCtx, err)
		span.RecordError(ce)
		span.SetStatus(codes.Error, string(ce.Kind))
		return ce
	}

	span.SetAttributes(attribute.Int("commit.attempts", checkoutCtx.Attempts))
	span.AddEvent("Sale committed.")
	return h.executeNext(checkoutCtx)
}

func (h *CommitHandler) apply(ctx context.Context, checkoutCtx *CheckoutContext, tx port.Tx) error {
	sale := checkoutCtx.Sale
	checkoutCtx.LowStock = nil

	if err := tx.CreateSale(ctx, sale); err != nil {
		return err
	}
	for _, item := range sale.Items {
		remaining, err := tx.AdjustStock(ctx, item.ProductID, -item.Quantity)
		if err != nil {
			return err
		}
		if err := tx.RecordMovement(ctx, catalog.InventoryMovement{
			ID:           checkoutCtx.NewID(),
			ProductID:    item.ProductID,
			MovementType: catalog.MovementOut,
			Quantity:     -item.Quantity,
			Reason:       catalog.ReasonSale,
			ReferenceID:  sale.ID,
			CreatedAt:    sale.CreatedAt,
		}); err != nil {
			return err
		}
		if p, ok := checkoutCtx.Products[item.ProductID]; ok && remaining <= p.MinStockLevel {
			checkoutCtx.LowStock = append(checkoutCtx.LowStock, domain.LowStockNotice{
				ProductID: p.ID, Name: p.Name, Remaining: remaining, MinLevel: p.MinStockLevel,
			})
		}
	}
	if sale.PromotionID != nil {
		if err := tx.IncrementUsage(ctx, *sale.PromotionID); err != nil {
			return err
		}
	}
	return nil
}

// classifyCommitError 把工作单元返回的错误映射成结账错误分类。
// 库存不足和促销次数用尽是业务拒绝，其余都算提交失败。
func classifyCommitError(checkoutCtx *CheckoutContext, err error) *domain.CheckoutError {
	var shortage *catalog.StockShortage
	switch {
	case errors.As(err, &shortage):
		ce := &domain.CheckoutError{
			Kind: domain.KindInsufficientStock, Step: StepCommit, ProductID: shortage.ProductID,
			ProductName: shortage.Name, Requested: shortage.Requested, Available: shortage.Available, Err: err,
		}
		if p, ok := checkoutCtx.Products[shortage.ProductID]; ok && ce.ProductName == "" {
			ce.ProductName = p.Name
		}
		return ce
	case errors.Is(err, catalog.ErrInsufficientStock):
		return &domain.CheckoutError{Kind: domain.KindInsufficientStock, Step: StepCommit, Err: err}
	case errors.Is(err, promotion.ErrUsageCapExceeded):
		return &domain.CheckoutError{
			Kind: domain.KindUsageCapExceeded, Step: StepCommit, PromotionID: promotionID(checkoutCtx),
			Reason: promotion.ReasonCapReached, Err: err,
		}
	case errors.Is(err, promotion.ErrPromotionNotFound):
		return &domain.CheckoutError{
			Kind: domain.KindPromotionNotApplicable, Step: StepCommit, PromotionID: promotionID(checkoutCtx),
			Reason: "not found", Err: err,
		}
	default:
		return &domain.CheckoutError{Kind: domain.KindCheckoutFailed, Step: StepCommit, Err: err}
	}
}

func promotionID(checkoutCtx *CheckoutContext) string {
	if checkoutCtx.Promotion != nil {
		return checkoutCtx.Promotion.ID
	}
	return ""
}

func traceAttempt(attempt int, err error) trace.EventOption {
	return trace.WithAttributes(attribute.Int("commit.attempt", attempt), attribute.String("error", err.Error()))
}
