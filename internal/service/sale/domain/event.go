package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleCompleted 在销售提交成功后发布到 Kafka。
type SaleCompleted struct {
	EventID        string              `json:"event_id"`
	SaleID         string              `json:"sale_id"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	TaxAmount      decimal.Decimal     `json:"tax_amount"`
	PaymentMethod  PaymentMethod       `json:"payment_method"`
	PromotionID    string              `json:"promotion_id,omitempty"`
	PromotionName  string              `json:"promotion_name,omitempty"`
	Items          []SaleCompletedLine `json:"items"`
	LowStock       []LowStockNotice    `json:"low_stock,omitempty"`
	OccurredAt     time.Time           `json:"occurred_at"`
}

type SaleCompletedLine struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// LowStockNotice 是扣减后库存不高于预警线的商品
type LowStockNotice struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Remaining int    `json:"remaining"`
	MinLevel  int    `json:"min_level"`
}

// NewSaleCompleted 根据已提交的销售单构造事件。
func NewSaleCompleted(eventID string, s *Sale, lowStock []LowStockNotice, at time.Time) *SaleCompleted {
	ev := &SaleCompleted{
		EventID:        eventID,
		SaleID:         s.ID,
		Subtotal:       s.Subtotal,
		DiscountAmount: s.DiscountAmount,
		TotalAmount:    s.TotalAmount,
		TaxAmount:      s.TaxAmount,
		PaymentMethod:  s.PaymentMethod,
		PromotionName:  s.PromotionName,
		LowStock:       lowStock,
		OccurredAt:     at,
		Items:          make([]SaleCompletedLine, 0, len(s.Items)),
	}
	if s.PromotionID != nil {
		ev.PromotionID = *s.PromotionID
	}
	for _, item := range s.Items {
		ev.Items = append(ev.Items, SaleCompletedLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			TotalPrice:  item.TotalPrice,
		})
	}
	return ev
}
