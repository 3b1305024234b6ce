package application

import (
	promotion "nexuspos/internal/service/promotion/domain"
	"nexuspos/internal/service/sale/domain"

	"github.com/shopspring/decimal"
)

// CartLine 是请求中的一行：商品 ID 和数量，价格取目录当前售价。
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest 是 POST /checkout 的请求体
type CheckoutRequest struct {
	Items         []CartLine `json:"items"`
	PromotionID   string     `json:"promotion_id,omitempty"`
	AutoPromotion *bool      `json:"auto_promotion,omitempty"` // 为空时使用门店配置
	PaymentMethod string     `json:"payment_method,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// QuoteRequest 是 POST /cart/quote 的请求体
type QuoteRequest struct {
	Items       []CartLine `json:"items"`
	PromotionID string     `json:"promotion_id,omitempty"`
}

// QuotedPromotion 是某个可用促销在当前小计上的折扣
type QuotedPromotion struct {
	PromotionID string          `json:"promotion_id"`
	Name        string          `json:"name"`
	Summary     string          `json:"summary"`
	Discount    decimal.Decimal `json:"discount"`
}

// QuoteResult 是购物车试算结果，不产生任何写入。
type QuoteResult struct {
	Items           []domain.CartItem             `json:"items"`
	Subtotal        decimal.Decimal               `json:"subtotal"`
	TotalQuantity   int                           `json:"total_quantity"`
	Applicable      []QuotedPromotion             `json:"applicable_promotions"`
	BestPromotionID string                        `json:"best_promotion_id,omitempty"`
	Selected        string                        `json:"selected_promotion_id,omitempty"`
	SelectedReason  string                        `json:"selected_promotion_reason,omitempty"` // 所选促销不可用的原因
	Discount        promotion.DiscountCalculation `json:"discount"`
	Total           decimal.Decimal               `json:"total"`
	TaxAmount       decimal.Decimal               `json:"tax_amount"`
}

// ErrorResponse 是结账失败时返回给终端的结构
type ErrorResponse struct {
	Kind        string `json:"kind"`
	Step        string `json:"step,omitempty"`
	Message     string `json:"message"`
	ProductID   string `json:"product_id,omitempty"`
	PromotionID string `json:"promotion_id,omitempty"`
	Requested   int    `json:"requested,omitempty"`
	Available   *int   `json:"available,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func ToErrorResponse(ce *domain.CheckoutError) ErrorResponse {
	resp := ErrorResponse{
		Kind:        string(ce.Kind),
		Step:        ce.Step,
		Message:     ce.Error(),
		ProductID:   ce.ProductID,
		PromotionID: ce.PromotionID,
		Reason:      ce.Reason,
	}
	if ce.Kind == domain.KindInsufficientStock {
		available := ce.Available
		resp.Requested = ce.Requested
		resp.Available = &available
	}
	return resp
}
