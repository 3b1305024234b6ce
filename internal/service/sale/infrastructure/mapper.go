package infrastructure

import (
	"nexuspos/internal/service/sale/domain"
)

func FromDomainSale(s *domain.Sale) *SaleModel {
	model := &SaleModel{
		ID:                 s.ID,
		Subtotal:           s.Subtotal,
		DiscountAmount:     s.DiscountAmount,
		DiscountPercentage: s.DiscountPercentage,
		TotalAmount:        s.TotalAmount,
		TaxAmount:          s.TaxAmount,
		PromotionID:        s.PromotionID,
		PromotionName:      s.PromotionName,
		PaymentMethod:      string(s.PaymentMethod),
		Status:             string(s.Status),
		Notes:              s.Notes,
		CreatedAt:          s.CreatedAt.UTC(),
		Items:              make([]SaleItemModel, 0, len(s.Items)),
	}
	for i, item := range s.Items {
		model.Items = append(model.Items, SaleItemModel{
			ID:          item.ID,
			SaleID:      s.ID,
			Line:        i + 1,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		})
	}
	return model
}

func ToDomainSale(m *SaleModel) *domain.Sale {
	s := &domain.Sale{
		ID:                 m.ID,
		Subtotal:           m.Subtotal,
		DiscountAmount:     m.DiscountAmount,
		DiscountPercentage: m.DiscountPercentage,
		TotalAmount:        m.TotalAmount,
		TaxAmount:          m.TaxAmount,
		PromotionID:        m.PromotionID,
		PromotionName:      m.PromotionName,
		PaymentMethod:      domain.PaymentMethod(m.PaymentMethod),
		Status:             domain.Status(m.Status),
		Notes:              m.Notes,
		CreatedAt:          m.CreatedAt,
		Items:              make([]domain.SaleItem, 0, len(m.Items)),
	}
	for _, item := range m.Items {
		s.Items = append(s.Items, domain.SaleItem{
			ID:          item.ID,
			SaleID:      item.SaleID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		})
	}
	return s
}
