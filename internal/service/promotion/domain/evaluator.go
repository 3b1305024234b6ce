// internal/service/promotion/domain/evaluator.go
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// 本文件是纯函数的促销计算，不做任何 I/O，可以并发调用。
// 金额在这里保持精确值，由调用方决定何时舍入。

// IsEligible 判断促销对给定小计在 now 时刻是否可用。
// 最低消费是含边界的；没有结束日期就不会按时间过期；没有次数上限就不会用尽。
func IsEligible(p Promotion, subtotal decimal.Decimal, now time.Time) bool {
	return p.IneligibilityReason(subtotal, now) == ""
}

// ComputeDiscount 计算促销对小计的折扣金额，结果落在 [0, subtotal]。
// 不检查可用性。
func ComputeDiscount(p Promotion, subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch p.Type {
	case DiscountTypePercentage:
		discount = subtotal.Mul(p.Value).Div(hundred)
	case DiscountTypeFixed:
		discount = p.Value
	default:
		return decimal.Zero
	}

	if discount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(discount, subtotal)
}

// SelectBest 在可用的促销中选出折扣最大的一个。
// 折扣相同时保留输入顺序中靠前的那个；没有可用促销时返回 false。
func SelectBest(promotions []Promotion, subtotal decimal.Decimal, now time.Time) (*Promotion, bool) {
	var (
		best         *Promotion
		bestDiscount decimal.Decimal
	)
	for i := range promotions {
		p := promotions[i]
		if !IsEligible(p, subtotal, now) {
			continue
		}
		d := ComputeDiscount(p, subtotal)
		if best == nil || d.GreaterThan(bestDiscount) {
			best = &p
			bestDiscount = d
		}
	}
	return best, best != nil
}

// Applicable 返回当前可用的促销，保持输入顺序。
func Applicable(promotions []Promotion, subtotal decimal.Decimal, now time.Time) []Promotion {
	out := make([]Promotion, 0, len(promotions))
	for _, p := range promotions {
		if IsEligible(p, subtotal, now) {
			out = append(out, p)
		}
	}
	return out
}

// Describe 生成给收银员看的一行促销说明。
func Describe(p Promotion) string {
	minSpend := p.MinAmount.StringFixed(2)
	if p.Type == DiscountTypePercentage {
		return fmt.Sprintf("%s%% off, minimum spend %s", p.Value.String(), minSpend)
	}
	return fmt.Sprintf("%s off, minimum spend %s", p.Value.StringFixed(2), minSpend)
}

// DiscountCalculation 是一次折扣计算的结果。
type DiscountCalculation struct {
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"` // 折扣占小计的等效百分比
	PromotionName      string          `json:"promotion_name"`
}

// Calculate 计算 p 在小计上的折扣及等效百分比。p 为 nil 时返回零值。
func Calculate(p *Promotion, subtotal decimal.Decimal) DiscountCalculation {
	if p == nil {
		return DiscountCalculation{}
	}
	discount := ComputeDiscount(*p, subtotal)
	calc := DiscountCalculation{
		DiscountAmount: discount,
		PromotionName:  p.Name,
	}
	if subtotal.IsPositive() {
		calc.DiscountPercentage = discount.Mul(hundred).Div(subtotal).Round(2)
	}
	return calc
}
