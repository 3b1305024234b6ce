package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrSaleNotFound         = errors.New("sale not found")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

// PaymentMethod 支付方式，只做记录，不对接支付网关。
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentQR       PaymentMethod = "qr"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentQR:
		return true
	}
	return false
}

// Status 销售单状态
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// SaleItem 是销售明细，创建后不再修改。
type SaleItem struct {
	ID          string          `json:"id"`
	SaleID      string          `json:"sale_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// Sale 是一次完成的销售。
// 不变量：TotalAmount = Subtotal - DiscountAmount，0 <= DiscountAmount <= Subtotal。
type Sale struct {
	ID                 string          `json:"id"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	PromotionID        *string         `json:"promotion_id,omitempty"`
	PromotionName      string          `json:"promotion_name,omitempty"`
	PaymentMethod      PaymentMethod   `json:"payment_method"`
	Status             Status          `json:"status"`
	Notes              string          `json:"notes,omitempty"`
	Items              []SaleItem      `json:"items"`
	CreatedAt          time.Time       `json:"created_at"`
}

// SaleDraft 是定价步骤的输入
type SaleDraft struct {
	ID                 string
	Items              []CartItem
	DiscountAmount     decimal.Decimal
	DiscountPercentage decimal.Decimal
	PromotionID        string
	PromotionName      string
	PaymentMethod      PaymentMethod
	Notes              string
	TaxRate            decimal.Decimal
	CreatedAt          time.Time
}

// NewSale 根据草稿计算金额并构造销售单，明细单价取购物车快照。
func NewSale(d SaleDraft) (*Sale, error) {
	if len(d.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if !d.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, d.PaymentMethod)
	}

	s := &Sale{
		ID:                 d.ID,
		Subtotal:           decimal.Zero,
		DiscountPercentage: d.DiscountPercentage,
		PaymentMethod:      d.PaymentMethod,
		Status:             StatusCompleted,
		Notes:              d.Notes,
		CreatedAt:          d.CreatedAt,
		Items:              make([]SaleItem, 0, len(d.Items)),
	}
	for _, item := range d.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, item.ProductID)
		}
		line := item.LineTotal()
		s.Subtotal = s.Subtotal.Add(line)
		s.Items = append(s.Items, SaleItem{
			SaleID:      d.ID,
			ProductID:   item.ProductID,
			ProductName: item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  line,
		})
	}

	discount := d.DiscountAmount
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(s.Subtotal) {
		discount = s.Subtotal
	}
	s.DiscountAmount = discount
	s.TotalAmount = s.Subtotal.Sub(discount)
	s.TaxAmount = IncludedTax(s.TotalAmount, d.TaxRate)

	if d.PromotionID != "" {
		id := d.PromotionID
		s.PromotionID = &id
		s.PromotionName = d.PromotionName
	}
	return s, nil
}

// IncludedTax 计算含税价中包含的税额：total * rate / (100 + rate)，保留两位小数。
func IncludedTax(total, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() || !total.IsPositive() {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	return total.Mul(rate).Div(hundred.Add(rate)).Round(2)
}

// TotalQuantity 返回所有明细的数量之和
func (s *Sale) TotalQuantity() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}
