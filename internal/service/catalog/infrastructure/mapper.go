package infrastructure

import (
	"nexuspos/internal/service/catalog/domain"
)

func ToDomainProduct(m *ProductModel) *domain.Product {
	if m == nil {
		return nil
	}
	return &domain.Product{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		SKU:           deref(m.SKU),
		Barcode:       deref(m.Barcode),
		Category:      m.Category,
		Unit:          m.Unit,
		ImageURL:      m.ImageURL,
		SellingPrice:  m.SellingPrice,
		CostPrice:     m.CostPrice,
		StockQuantity: m.StockQuantity,
		MinStockLevel: m.MinStockLevel,
		IsActive:      m.IsActive,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func FromDomainProduct(p *domain.Product) *ProductModel {
	if p == nil {
		return nil
	}
	return &ProductModel{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		SKU:           nullable(p.SKU),
		Barcode:       nullable(p.Barcode),
		Category:      p.Category,
		Unit:          p.Unit,
		ImageURL:      p.ImageURL,
		SellingPrice:  p.SellingPrice,
		CostPrice:     p.CostPrice,
		StockQuantity: p.StockQuantity,
		MinStockLevel: p.MinStockLevel,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func ToDomainMovement(m *InventoryMovementModel) domain.InventoryMovement {
	return domain.InventoryMovement{
		ID:           m.ID,
		ProductID:    m.ProductID,
		MovementType: domain.MovementType(m.MovementType),
		Quantity:     m.Quantity,
		Reason:       m.Reason,
		ReferenceID:  m.ReferenceID,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
	}
}

func FromDomainMovement(m domain.InventoryMovement) *InventoryMovementModel {
	return &InventoryMovementModel{
		ID:           m.ID,
		ProductID:    m.ProductID,
		MovementType: string(m.MovementType),
		Quantity:     m.Quantity,
		Reason:       m.Reason,
		ReferenceID:  m.ReferenceID,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
