package infrastructure

import (
	"context"
	"errors"
	"strings"
	"time"

	"nexuspos/internal/pkg/dberr"
	"nexuspos/internal/service/catalog/domain"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// GormProductRepository 是 ProductRepository 的 GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) Create(ctx context.Context, p *domain.Product) error {
	model := FromDomainProduct(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return mapWriteError(err, p.ID)
	}
	p.CreatedAt, p.UpdatedAt = model.CreatedAt, model.UpdatedAt
	return nil
}

// Update 覆盖商品资料。库存只能通过 AdjustStock 或结账修改，这里不写 stock_quantity。
func (r *GormProductRepository) Update(ctx context.Context, p *domain.Product) error {
	model := FromDomainProduct(p)
	result := r.db.WithContext(ctx).Model(&ProductModel{ID: p.ID}).
		Select("name", "description", "sku", "barcode", "category", "unit", "image_url",
			"selling_price", "cost_price", "min_stock_level", "is_active", "updated_at").
		Updates(model)
	if result.Error != nil {
		return mapWriteError(result.Error, p.ID)
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *GormProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	return findProduct(r.db.WithContext(ctx), id)
}

func (r *GormProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	q := r.db.WithContext(ctx).Model(&ProductModel{})
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(barcode) LIKE ?", like, like, like)
	}

	var models []ProductModel
	if err := q.Order("name ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list products")
	}
	return toDomainProducts(models), nil
}

func (r *GormProductRepository) SetActive(ctx context.Context, id string, active bool) error {
	result := r.db.WithContext(ctx).Model(&ProductModel{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "updated_at": time.Now()})
	if result.Error != nil {
		return pkgerrors.Wrapf(result.Error, "set product %s active=%v", id, active)
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *GormProductRepository) AdjustStock(ctx context.Context, m domain.InventoryMovement) (*domain.Product, error) {
	var updated *domain.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := AdjustStockTx(tx, m.ProductID, m.Quantity); err != nil {
			return err
		}
		if err := RecordMovementTx(tx, m); err != nil {
			return err
		}
		p, err := findProduct(tx, m.ProductID)
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *GormProductRepository) ListMovements(ctx context.Context, productID string, limit int) ([]domain.InventoryMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []InventoryMovementModel
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).
		Order("created_at DESC").Order("id DESC").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "list movements of %s", productID)
	}
	out := make([]domain.InventoryMovement, 0, len(models))
	for i := range models {
		out = append(out, ToDomainMovement(&models[i]))
	}
	return out, nil
}

func (r *GormProductRepository) LowStock(ctx context.Context) ([]domain.Product, error) {
	var models []ProductModel
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND stock_quantity <= min_stock_level", true).
		Order("stock_quantity ASC").Order("name ASC").
		Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list low stock products")
	}
	return toDomainProducts(models), nil
}

// AdjustStockTx 在给定事务里把库存加上 delta，返回调整后的库存。
// 条件更新保证库存不会变成负数：不满足时一行都不会被修改，此时返回 *domain.StockShortage。
func AdjustStockTx(tx *gorm.DB, productID string, delta int) (int, error) {
	result := tx.Model(&ProductModel{}).
		Where("id = ? AND stock_quantity + ? >= 0", productID, delta).
		UpdateColumns(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity + ?", delta),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return 0, pkgerrors.Wrapf(result.Error, "adjust stock of %s by %d", productID, delta)
	}

	current, err := findProduct(tx, productID)
	if err != nil {
		return 0, err
	}
	if result.RowsAffected == 0 {
		return 0, &domain.StockShortage{
			ProductID: productID,
			Name:      current.Name,
			Available: current.StockQuantity,
			Requested: -delta,
		}
	}
	return current.StockQuantity, nil
}

// RecordMovementTx 在给定事务里写入一条库存流水。
func RecordMovementTx(tx *gorm.DB, m domain.InventoryMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if err := tx.Create(FromDomainMovement(m)).Error; err != nil {
		return pkgerrors.Wrapf(err, "record movement for %s", m.ProductID)
	}
	return nil
}

func findProduct(db *gorm.DB, id string) (*domain.Product, error) {
	var model ProductModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, pkgerrors.Wrapf(err, "find product %s", id)
	}
	return ToDomainProduct(&model), nil
}

func mapWriteError(err error, id string) error {
	if dberr.IsDuplicate(err) {
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "barcode"):
			return domain.ErrDuplicateBarcode
		case strings.Contains(msg, "sku"):
			return domain.ErrDuplicateSKU
		}
	}
	return pkgerrors.Wrapf(err, "write product %s", id)
}

func toDomainProducts(models []ProductModel) []domain.Product {
	out := make([]domain.Product, 0, len(models))
	for i := range models {
		out = append(out, *ToDomainProduct(&models[i]))
	}
	return out
}
