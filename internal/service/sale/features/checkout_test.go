package features

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	catalog "nexuspos/internal/service/catalog/domain"
	promotion "nexuspos/internal/service/promotion/domain"
	"nexuspos/internal/service/sale/application"
	"nexuspos/internal/service/sale/application/chain"
	"nexuspos/internal/service/sale/domain"
	"nexuspos/internal/service/sale/infrastructure"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

var clock = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type checkoutTestContext struct {
	store   *infrastructure.MemoryStore
	service *application.CheckoutService
	sale    *domain.Sale
	err     error
	results []error
}

func (c *checkoutTestContext) reset() {
	c.store = infrastructure.NewMemoryStore()
	c.service = application.NewCheckoutService(c.store, c.store, c.store, c.store, otel.Tracer("features"), chain.Settings{
		TaxRate:       decimal.NewFromInt(7),
		MaxRetries:    2,
		RetryBackoff:  time.Millisecond,
		CommitTimeout: time.Second,
	}).WithClock(func() time.Time { return clock })
	c.sale = nil
	c.err = nil
	c.results = nil
}

func (c *checkoutTestContext) aProductPricedWithStock(id, name string, price, stock int) error {
	c.store.PutProduct(catalog.Product{
		ID: id, Name: name, SellingPrice: decimal.NewFromInt(int64(price)), Unit: catalog.DefaultUnit,
		StockQuantity: stock, MinStockLevel: catalog.DefaultMinStockLevel, IsActive: true,
	})
	return nil
}

func (c *checkoutTestContext) putPromotion(id string, typ promotion.DiscountType, value, min, used int, max *int) {
	c.store.PutPromotion(promotion.Promotion{
		ID: id, Name: "Promotion " + id, Type: typ,
		Value: decimal.NewFromInt(int64(value)), MinAmount: decimal.NewFromInt(int64(min)),
		StartDate: clock.Add(-24 * time.Hour), IsActive: true, UsageCount: used, MaxUsage: max,
	})
}

func (c *checkoutTestContext) aPromotionWithMinimumSpend(kind, id string, value, min int) error {
	typ := promotion.DiscountType(kind)
	if !typ.Valid() {
		return fmt.Errorf("unknown promotion type %q", kind)
	}
	c.putPromotion(id, typ, value, min, 0, nil)
	return nil
}

func (c *checkoutTestContext) aFixedPromotionAlreadyUsed(id string, value, min, used, max int) error {
	c.putPromotion(id, promotion.DiscountTypeFixed, value, min, used, &max)
	return nil
}

func (c *checkoutTestContext) checkout(id string, qty int, opts domain.CheckoutOptions) (*domain.Sale, error) {
	ctx := context.Background()
	cart, err := c.service.BuildCart(ctx, []application.CartLine{{ProductID: id, Quantity: qty}})
	if err != nil {
		return nil, err
	}
	return c.service.Checkout(ctx, cart, opts)
}

func (c *checkoutTestContext) iCheckOut(qty int, id string) error {
	c.sale, c.err = c.checkout(id, qty, domain.CheckoutOptions{})
	return nil
}

func (c *checkoutTestContext) iCheckOutWithPromotion(qty int, id, promotionID string) error {
	c.sale, c.err = c.checkout(id, qty, domain.CheckoutOptions{PromotionID: promotionID})
	return nil
}

func (c *checkoutTestContext) iCheckOutWithTheBestPromotion(qty int, id string) error {
	c.sale, c.err = c.checkout(id, qty, domain.CheckoutOptions{AutoPromotion: true})
	return nil
}

func (c *checkoutTestContext) twoTerminalsCheckOut(qty int, id string) error {
	ctx := context.Background()
	carts := make([]*domain.Cart, 2)
	for i := range carts {
		cart, err := c.service.BuildCart(ctx, []application.CartLine{{ProductID: id, Quantity: qty}})
		if err != nil {
			return err
		}
		carts[i] = cart
	}

	c.results = make([]error, len(carts))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, cart := range carts {
		wg.Add(1)
		go func(i int, cart *domain.Cart) {
			defer wg.Done()
			<-start
			_, c.results[i] = c.service.Checkout(ctx, cart, domain.CheckoutOptions{})
		}(i, cart)
	}
	close(start)
	wg.Wait()
	return nil
}

func (c *checkoutTestContext) theCheckoutSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected checkout to succeed, got %v", c.err)
	}
	return nil
}

func (c *checkoutTestContext) theCheckoutFailsWith(kind string) error {
	return expectKind(c.err, kind)
}

func (c *checkoutTestContext) theErrorMessageContains(substr string) error {
	if c.err == nil {
		return fmt.Errorf("expected an error containing %q", substr)
	}
	if !strings.Contains(c.err.Error(), substr) {
		return fmt.Errorf("error %q does not contain %q", c.err.Error(), substr)
	}
	return nil
}

func (c *checkoutTestContext) amountIs(field string, want int) error {
	if c.sale == nil {
		return fmt.Errorf("no sale, last error: %v", c.err)
	}
	var got decimal.Decimal
	switch field {
	case "subtotal":
		got = c.sale.Subtotal
	case "discount":
		got = c.sale.DiscountAmount
	case "total":
		got = c.sale.TotalAmount
	default:
		return fmt.Errorf("unknown amount %q", field)
	}
	if !got.Equal(decimal.NewFromInt(int64(want))) {
		return fmt.Errorf("expected sale %s %d, got %s", field, want, got)
	}
	return nil
}

func (c *checkoutTestContext) productHasInStock(id string, want int) error {
	p, err := c.store.GetProduct(context.Background(), id)
	if err != nil {
		return err
	}
	if p.StockQuantity != want {
		return fmt.Errorf("expected %s to have %d in stock, got %d", id, want, p.StockQuantity)
	}
	return nil
}

func (c *checkoutTestContext) salesHaveBeenRecorded(want int) error {
	if got := c.store.SaleCount(); got != want {
		return fmt.Errorf("expected %d sales, got %d", want, got)
	}
	return nil
}

func (c *checkoutTestContext) promotionHasBeenUsed(id string, want int) error {
	p, err := c.store.GetPromotion(context.Background(), id)
	if err != nil {
		return err
	}
	if p.UsageCount != want {
		return fmt.Errorf("expected promotion %s used %d times, got %d", id, want, p.UsageCount)
	}
	return nil
}

func (c *checkoutTestContext) exactlyOneCheckoutSucceeds() error {
	ok := 0
	for _, err := range c.results {
		if err == nil {
			ok++
		}
	}
	if ok != 1 {
		return fmt.Errorf("expected exactly one success, got %d: %v", ok, c.results)
	}
	return nil
}

func (c *checkoutTestContext) theOtherCheckoutFailsWith(kind string) error {
	for _, err := range c.results {
		if err != nil {
			return expectKind(err, kind)
		}
	}
	return fmt.Errorf("no checkout failed")
}

func expectKind(err error, kind string) error {
	if err == nil {
		return fmt.Errorf("expected %s, checkout succeeded", kind)
	}
	ce, ok := domain.AsCheckoutError(err)
	if !ok {
		return fmt.Errorf("expected a checkout error, got %v", err)
	}
	if string(ce.Kind) != kind {
		return fmt.Errorf("expected %s, got %s: %v", kind, ce.Kind, err)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given
	ctx.Step(`^a product "([^"]*)" named "([^"]*)" priced (\d+) with (\d+) in stock$`, tc.aProductPricedWithStock)
	ctx.Step(`^a (percentage|fixed) promotion "([^"]*)" of (\d+) with minimum spend (\d+)$`, tc.aPromotionWithMinimumSpend)
	ctx.Step(`^a fixed promotion "([^"]*)" of (\d+) with minimum spend (\d+) already used (\d+) of (\d+) times$`, tc.aFixedPromotionAlreadyUsed)

	// When
	ctx.Step(`^I check out (\d+) of "([^"]*)"$`, tc.iCheckOut)
	ctx.Step(`^I check out (\d+) of "([^"]*)" with promotion "([^"]*)"$`, tc.iCheckOutWithPromotion)
	ctx.Step(`^I check out (\d+) of "([^"]*)" with the best promotion$`, tc.iCheckOutWithTheBestPromotion)
	ctx.Step(`^two terminals check out (\d+) of "([^"]*)" at the same time$`, tc.twoTerminalsCheckOut)

	// Then
	ctx.Step(`^the checkout succeeds$`, tc.theCheckoutSucceeds)
	ctx.Step(`^the checkout fails with "([^"]*)"$`, tc.theCheckoutFailsWith)
	ctx.Step(`^the error message contains "([^"]*)"$`, tc.theErrorMessageContains)
	ctx.Step(`^the sale (subtotal|discount|total) is (\d+)$`, tc.amountIs)
	ctx.Step(`^product "([^"]*)" has (\d+) in stock$`, tc.productHasInStock)
	ctx.Step(`^(\d+) sales? ha(?:s|ve) been recorded$`, tc.salesHaveBeenRecorded)
	ctx.Step(`^promotion "([^"]*)" has been used (\d+) times$`, tc.promotionHasBeenUsed)
	ctx.Step(`^exactly one checkout succeeds$`, tc.exactlyOneCheckoutSucceeds)
	ctx.Step(`^the other checkout fails with "([^"]*)"$`, tc.theOtherCheckoutFailsWith)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
