package chain

import (
	"context"
	"sync"
	"time"

	catalog "nexuspos/internal/service/catalog/domain"
	promotion "nexuspos/internal/service/promotion/domain"
	"nexuspos/internal/service/sale/domain"
	"nexuspos/internal/service/sale/domain/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

// Settings 是结账流程用到的门店和提交参数
type Settings struct {
	TaxRate       decimal.Decimal
	MaxRetries    int
	RetryBackoff  time.Duration
	CommitTimeout time.Duration
}

// CheckoutContext 在责任链中传递一次结账所需的全部数据。
type CheckoutContext struct {
	Ctx      context.Context
	Tracer   trace.Tracer
	Cart     *domain.Cart
	Options  domain.CheckoutOptions
	Settings Settings
	Now      func() time.Time
	NewID    func() string

	// 出站端口
	Catalog    port.CatalogReader
	Promotions port.PromotionReader
	UnitOfWork port.UnitOfWork
	Locker     port.Locker        // 可为 nil
	Publisher  port.SalePublisher // 可为 nil

	// 各步骤的产出
	Products  map[string]*catalog.Product
	Subtotal  decimal.Decimal
	Promotion *promotion.Promotion
	Discount  promotion.DiscountCalculation
	Sale      *domain.Sale
	LowStock  []domain.LowStockNotice
	Attempts  int

	releases []func()
	relLock  sync.Mutex
}

// AddRelease 注册一个在链结束后执行的释放函数，后注册的先执行。
func (c *CheckoutContext) AddRelease(fn func()) {
	c.relLock.Lock()
	defer c.relLock.Unlock()
	c.releases = append([]func(){fn}, c.releases...)
}

// ReleaseAll 执行并清空所有释放函数
func (c *CheckoutContext) ReleaseAll() {
	c.relLock.Lock()
	defer c.relLock.Unlock()
	for _, fn := range c.releases {
		fn()
	}
	c.releases = nil
}

type Handler interface {
	SetNext(handler Handler) Handler
	Handle(checkoutCtx *CheckoutContext) error
}

// NextHandler 嵌入到具体步骤中，负责调用下一个节点
type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(checkoutCtx *CheckoutContext) error {
	if h.next != nil {
		return h.next.Handle(checkoutCtx)
	}
	return nil
}

// Build 按顺序串起结账的各个步骤：校验、促销、定价、加锁、提交、通知。
func Build() Handler {
	head := new(ValidateHandler)
	head.SetNext(new(PromotionHandler)).
		SetNext(new(PricingHandler)).
		SetNext(new(LockHandler)).
		SetNext(new(CommitHandler)).
		SetNext(new(NotifyHandler))
	return head
}

// cancelled 在提交开始前检查调用方是否已经放弃
func cancelled(checkoutCtx *CheckoutContext, step string) *domain.CheckoutError {
	if err := checkoutCtx.Ctx.Err(); err != nil {
		return &domain.CheckoutError{
			Kind:   domain.KindCheckoutFailed,
			Step:   step,
			Reason: "cancelled before commit",
			Err:    err,
		}
	}
	return nil
}
