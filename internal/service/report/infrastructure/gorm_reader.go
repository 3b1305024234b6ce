package infrastructure

import (
	"context"
	"time"

	"nexuspos/internal/service/report/domain"
	saledomain "nexuspos/internal/service/sale/domain"
	salestore "nexuspos/internal/service/sale/infrastructure"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormSalesReader 从 sales 和 sale_items 表读取报表数据。
// 销售单头和明细分两次查询，由调用方并发执行后再合并。
type GormSalesReader struct {
	db *gorm.DB
}

func NewGormSalesReader(db *gorm.DB) *GormSalesReader {
	return &GormSalesReader{db: db}
}

func (r *GormSalesReader) SaleHeaders(ctx context.Context, from, to time.Time) ([]domain.SaleFact, error) {
	var models []salestore.SaleModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(saledomain.StatusCompleted)).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "query sale headers")
	}

	facts := make([]domain.SaleFact, 0, len(models))
	for _, m := range models {
		f := domain.SaleFact{
			SaleID:        m.ID,
			CreatedAt:     m.CreatedAt,
			PaymentMethod: m.PaymentMethod,
			Subtotal:      m.Subtotal,
			Discount:      m.DiscountAmount,
			Total:         m.TotalAmount,
		}
		if m.PromotionID != nil {
			f.PromotionID = *m.PromotionID
		}
		facts = append(facts, f)
	}
	return facts, nil
}

type lineRow struct {
	SaleID      string
	ProductID   string
	ProductName string
	Quantity    int
	TotalPrice  decimal.Decimal
}

func (r *GormSalesReader) SaleLines(ctx context.Context, from, to time.Time) ([]domain.LineFact, error) {
	var rows []lineRow
	err := r.db.WithContext(ctx).
		Table("sale_items").
		Select("sale_items.sale_id, sale_items.product_id, sale_items.product_name, sale_items.quantity, sale_items.total_price").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.status = ?", string(saledomain.StatusCompleted)).
		Where("sales.created_at >= ? AND sales.created_at < ?", from.UTC(), to.UTC()).
		Order("sale_items.sale_id ASC").
		Order("sale_items.line ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "query sale lines")
	}

	lines := make([]domain.LineFact, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, domain.LineFact{
			SaleID:      row.SaleID,
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			Quantity:    row.Quantity,
			Revenue:     row.TotalPrice,
		})
	}
	return lines, nil
}
