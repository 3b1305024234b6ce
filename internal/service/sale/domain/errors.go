package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind 是结账失败的分类，调用方按分类渲染提示。
type ErrorKind string

const (
	KindValidation             ErrorKind = "ValidationError"
	KindPromotionNotApplicable ErrorKind = "PromotionNotApplicable"
	KindInsufficientStock      ErrorKind = "InsufficientStock"
	KindUsageCapExceeded       ErrorKind = "UsageCapExceeded"
	KindCheckoutFailed         ErrorKind = "CheckoutFailed"
)

// 分类哨兵，errors.Is(err, ErrInsufficientStock) 可以判断 *CheckoutError 的分类。
var (
	ErrValidation             = errors.New("validation error")
	ErrPromotionNotApplicable = errors.New("promotion not applicable")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrUsageCapExceeded       = errors.New("promotion usage cap exceeded")
	ErrCheckoutFailed         = errors.New("checkout failed")
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:             ErrValidation,
	KindPromotionNotApplicable: ErrPromotionNotApplicable,
	KindInsufficientStock:      ErrInsufficientStock,
	KindUsageCapExceeded:       ErrUsageCapExceeded,
	KindCheckoutFailed:         ErrCheckoutFailed,
}

// CheckoutError 是结账流程唯一的失败形态。
// 它说明失败在哪一步、属于哪一类，以及涉及的商品行或促销。
type CheckoutError struct {
	Kind        ErrorKind
	Step        string
	ProductID   string
	ProductName string
	PromotionID string
	Requested   int
	Available   int
	Reason      string
	Err         error
}

func (e *CheckoutError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Step != "" {
		fmt.Fprintf(&b, " at %s", e.Step)
	}
	b.WriteString(": ")

	switch {
	case e.Kind == KindInsufficientStock:
		name := e.ProductName
		if name == "" {
			name = e.ProductID
		}
		fmt.Fprintf(&b, "product %s: only %d in stock, %d requested", name, e.Available, e.Requested)
	case e.PromotionID != "":
		fmt.Fprintf(&b, "promotion %s", e.PromotionID)
		if e.Reason != "" {
			fmt.Fprintf(&b, ": %s", e.Reason)
		}
	case e.ProductID != "":
		fmt.Fprintf(&b, "product %s", e.ProductID)
		if e.Reason != "" {
			fmt.Fprintf(&b, ": %s", e.Reason)
		}
	case e.Reason != "":
		b.WriteString(e.Reason)
	default:
		b.WriteString(kindSentinels[e.Kind].Error())
	}

	if e.Err != nil && e.Kind == KindCheckoutFailed {
		fmt.Fprintf(&b, " (%v)", e.Err)
	}
	return b.String()
}

// Unwrap 同时暴露分类哨兵和底层原因。
func (e *CheckoutError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := kindSentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// AsCheckoutError 取出错误链上的 *CheckoutError。
func AsCheckoutError(err error) (*CheckoutError, bool) {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
