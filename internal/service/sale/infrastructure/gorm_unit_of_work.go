package infrastructure

import (
	"context"
	"errors"

	catalog "nexuspos/internal/service/catalog/domain"
	catalogstore "nexuspos/internal/service/catalog/infrastructure"
	promotionstore "nexuspos/internal/service/promotion/infrastructure"
	"nexuspos/internal/service/sale/domain"
	"nexuspos/internal/service/sale/domain/port"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// GormUnitOfWork 用一个数据库事务承载一次结账的全部写入。
// 库存和促销次数都用带条件的 UPDATE，并发结账无需额外加锁。
type GormUnitOfWork struct {
	db *gorm.DB
}

func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

func (u *GormUnitOfWork) Do(ctx context.Context, fn func(tx port.Tx) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) CreateSale(ctx context.Context, s *domain.Sale) error {
	if err := t.db.WithContext(ctx).Create(FromDomainSale(s)).Error; err != nil {
		return pkgerrors.Wrapf(err, "create sale %s", s.ID)
	}
	return nil
}

func (t *gormTx) AdjustStock(ctx context.Context, productID string, delta int) (int, error) {
	return catalogstore.AdjustStockTx(t.db.WithContext(ctx), productID, delta)
}

func (t *gormTx) IncrementUsage(ctx context.Context, promotionID string) error {
	return promotionstore.IncrementUsageTx(t.db.WithContext(ctx), promotionID)
}

func (t *gormTx) RecordMovement(ctx context.Context, m catalog.InventoryMovement) error {
	return catalogstore.RecordMovementTx(t.db.WithContext(ctx), m)
}

// GormSaleRepository 读取销售单及其明细
type GormSaleRepository struct {
	db *gorm.DB
}

func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

func (r *GormSaleRepository) FindByID(ctx context.Context, id string) (*domain.Sale, error) {
	var model SaleModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line ASC") }).
		Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSaleNotFound
		}
		return nil, pkgerrors.Wrapf(err, "find sale %s", id)
	}
	return ToDomainSale(&model), nil
}
