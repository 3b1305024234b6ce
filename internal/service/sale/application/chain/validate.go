package chain

import (
	"errors"

	catalog "nexuspos/internal/service/catalog/domain"
	"nexuspos/internal/service/sale/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const StepValidate = "validate"

// ValidateHandler 检查购物车，并按商品的最新快照核对状态和库存。
type ValidateHandler struct {
	NextHandler
}

func (h *ValidateHandler) Handle(checkoutCtx *CheckoutContext) error {
	ctx, span := checkoutCtx.Tracer.Start(checkoutCtx.Ctx, "checkout.Validate")
	defer span.End()

	fail := func(err *domain.CheckoutError) error {
		err.Step = StepValidate
		span.RecordError(err)
		span.SetStatus(codes.Error, string(err.Kind))
		return err
	}

	if checkoutCtx.Cart == nil || checkoutCtx.Cart.IsEmpty() {
		return fail(&domain.CheckoutError{Kind: domain.KindValidation, Reason: "cart is empty", Err: domain.ErrEmptyCart})
	}
	if !checkoutCtx.Options.PaymentMethod.Valid() {
		return fail(&domain.CheckoutError{
			Kind:   domain.KindValidation,
			Reason: "unsupported payment method " + string(checkoutCtx.Options.PaymentMethod),
			Err:    domain.ErrInvalidPaymentMethod,
		})
	}

	items := checkoutCtx.Cart.Items()
	span.SetAttributes(attribute.Int("cart.items", len(items)))

	checkoutCtx.Products = make(map[string]*catalog.Product, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return fail(&domain.CheckoutError{
				Kind: domain.KindValidation, ProductID: item.ProductID, ProductName: item.Name,
				Reason: "quantity must be at least 1", Err: domain.ErrInvalidQuantity,
			})
		}

		p, err := checkoutCtx.Catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return fail(&domain.CheckoutError{
					Kind: domain.KindValidation, ProductID: item.ProductID, ProductName: item.Name,
					Reason: "product not found", Err: err,
				})
			}
			return fail(&domain.CheckoutError{Kind: domain.KindCheckoutFailed, ProductID: item.ProductID, Err: err})
		}

		if err := p.CanSell(item.Quantity); err != nil {
			var shortage *catalog.StockShortage
			if errors.As(err, &shortage) {
				return fail(&domain.CheckoutError{
					Kind: domain.KindInsufficientStock, ProductID: p.ID, ProductName: p.Name,
					Requested: item.Quantity, Available: p.StockQuantity, Err: err,
				})
			}
			return fail(&domain.CheckoutError{
				Kind: domain.KindValidation, ProductID: p.ID, ProductName: p.Name,
				Reason: "product is inactive", Err: err,
			})
		}
		checkoutCtx.Products[p.ID] = p
	}

	if err := cancelled(checkoutCtx, StepValidate); err != nil {
		return fail(err)
	}
	span.AddEvent("Cart lines validated against current catalog.")
	return h.executeNext(checkoutCtx)
}
