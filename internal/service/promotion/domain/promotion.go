// internal/service/promotion/domain/promotion.go
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType 定义了优惠的计算方式。
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage" // 按小计百分比折扣
	DiscountTypeFixed      DiscountType = "fixed"      // 立减固定金额
)

func (t DiscountType) Valid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeFixed
}

var (
	ErrPromotionNotFound = errors.New("promotion not found")
	ErrInvalidPromotion  = errors.New("invalid promotion")
	ErrUsageCapExceeded  = errors.New("promotion usage cap reached")
	ErrNotApplicable     = errors.New("promotion not applicable")
)

// 不满足条件的原因，会出现在返回给收银台的错误信息里。
const (
	ReasonInactive    = "inactive"
	ReasonNotStarted  = "not started"
	ReasonExpired     = "expired"
	ReasonBelowMin    = "below minimum"
	ReasonCapReached  = "usage cap reached"
	ReasonNotEligible = "not eligible"
)

var hundred = decimal.NewFromInt(100)

// Promotion 是一条门店促销规则。
type Promotion struct {
	ID          string
	Name        string
	Description string
	Type        DiscountType
	Value       decimal.Decimal // 百分比（0-100]，或固定金额
	MinAmount   decimal.Decimal // 小计下限（含）
	StartDate   time.Time
	EndDate     *time.Time // nil 表示不会按时间过期
	IsActive    bool
	UsageCount  int
	MaxUsage    *int // nil 表示不限次数
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate 校验管理端提交的促销定义。
func (p *Promotion) Validate() error {
	var problems []string
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	switch p.Type {
	case DiscountTypePercentage:
		if !p.Value.IsPositive() || p.Value.GreaterThan(hundred) {
			problems = append(problems, "percentage value must be in (0, 100]")
		}
	case DiscountTypeFixed:
		if !p.Value.IsPositive() {
			problems = append(problems, "fixed value must be greater than 0")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown type %q", p.Type))
	}
	if p.MinAmount.IsNegative() {
		problems = append(problems, "min_amount must not be negative")
	}
	if p.StartDate.IsZero() {
		problems = append(problems, "start_date is required")
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		problems = append(problems, "end_date must not be before start_date")
	}
	if p.MaxUsage != nil && *p.MaxUsage < 1 {
		problems = append(problems, "max_usage must be at least 1")
	}
	if p.UsageCount < 0 {
		problems = append(problems, "usage_count must not be negative")
	}
	if p.MaxUsage != nil && p.UsageCount > *p.MaxUsage {
		problems = append(problems, fmt.Sprintf("max_usage %d is below current usage_count %d", *p.MaxUsage, p.UsageCount))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPromotion, strings.Join(problems, "; "))
	}
	return nil
}

// Exhausted 报告使用次数是否已达上限。
func (p Promotion) Exhausted() bool {
	return p.MaxUsage != nil && p.UsageCount >= *p.MaxUsage
}

// IneligibilityReason 返回促销对该小计在 now 时刻不可用的原因，可用时返回空串。
func (p Promotion) IneligibilityReason(subtotal decimal.Decimal, now time.Time) string {
	switch {
	case !p.IsActive:
		return ReasonInactive
	case now.Before(p.StartDate):
		return ReasonNotStarted
	case p.EndDate != nil && now.After(*p.EndDate):
		return ReasonExpired
	case subtotal.LessThan(p.MinAmount):
		return ReasonBelowMin
	case p.Exhausted():
		return ReasonCapReached
	}
	return ""
}
