package infrastructure

import (
	"context"
	"fmt"
	"testing"

	"nexuspos/internal/service/catalog/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	return db
}

func newProduct(id, name, sku string, stock int) *domain.Product {
	p := &domain.Product{
		ID:            id,
		Name:          name,
		SKU:           sku,
		SellingPrice:  decimal.NewFromInt(100),
		CostPrice:     decimal.NewFromInt(60),
		StockQuantity: stock,
		MinStockLevel: domain.DefaultMinStockLevel,
		IsActive:      true,
	}
	p.Normalize()
	return p
}

func TestGormProductRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewGormProductRepository(setupTestDB(t))

	p := newProduct("p1", "Green Tea", "TEA-1", 10)
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Green Tea", got.Name)
	assert.Equal(t, "TEA-1", got.SKU)
	assert.Equal(t, "", got.Barcode)
	assert.Equal(t, domain.DefaultUnit, got.Unit)
	assert.True(t, decimal.NewFromInt(100).Equal(got.SellingPrice))

	got.Name = "Jasmine Tea"
	got.StockQuantity = 999 // Update 不写库存
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Jasmine Tea", again.Name)
	assert.Equal(t, 10, again.StockQuantity)

	require.NoError(t, repo.SetActive(ctx, "p1", false))
	again, _ = repo.FindByID(ctx, "p1")
	assert.False(t, again.IsActive)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.ErrorIs(t, repo.SetActive(ctx, "missing", true), domain.ErrProductNotFound)
}

func TestGormProductRepository_Duplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewGormProductRepository(setupTestDB(t))

	a := newProduct("a", "A", "SKU-1", 1)
	a.Barcode = "885000"
	require.NoError(t, repo.Create(ctx, a))

	// 空 SKU 存为 NULL，可以有多个
	require.NoError(t, repo.Create(ctx, newProduct("b", "B", "", 1)))
	require.NoError(t, repo.Create(ctx, newProduct("c", "C", "", 1)))

	err := repo.Create(ctx, newProduct("d", "D", "SKU-1", 1))
	assert.ErrorIs(t, err, domain.ErrDuplicateSKU)

	e := newProduct("e", "E", "SKU-2", 1)
	e.Barcode = "885000"
	assert.ErrorIs(t, repo.Create(ctx, e), domain.ErrDuplicateBarcode)
}

func TestGormProductRepository_ListFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewGormProductRepository(setupTestDB(t))

	tea := newProduct("1", "Green Tea", "TEA-1", 3)
	tea.Category = "Drinks"
	coffee := newProduct("2", "Coffee", "COF-1", 20)
	coffee.Category = "Drinks"
	coffee.Barcode = "4711"
	bread := newProduct("3", "Bread", "BRD-1", 0)
	bread.Category = "Bakery"
	bread.IsActive = false
	for _, p := range []*domain.Product{tea, coffee, bread} {
		require.NoError(t, repo.Create(ctx, p))
	}

	all, err := repo.List(ctx, domain.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "Bread", all[0].Name)

	active, err := repo.List(ctx, domain.ProductFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	drinks, err := repo.List(ctx, domain.ProductFilter{Category: "Drinks"})
	require.NoError(t, err)
	assert.Len(t, drinks, 2)

	byBarcode, err := repo.List(ctx, domain.ProductFilter{Search: "4711"})
	require.NoError(t, err)
	require.Len(t, byBarcode, 1)
	assert.Equal(t, "Coffee", byBarcode[0].Name)

	bySKU, err := repo.List(ctx, domain.ProductFilter{Search: "tea-"})
	require.NoError(t, err)
	require.Len(t, bySKU, 1)
	assert.Equal(t, "Green Tea", bySKU[0].Name)

	low, err := repo.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Green Tea", low[0].Name)
}

func TestGormProductRepository_AdjustStock(t *testing.T) {
	ctx := context.Background()
	repo := NewGormProductRepository(setupTestDB(t))
	require.NoError(t, repo.Create(ctx, newProduct("p1", "Rice", "", 5)))

	p, err := repo.AdjustStock(ctx, domain.InventoryMovement{
		ProductID: "p1", MovementType: domain.MovementIn, Quantity: 7, Reason: "Restock",
	})
	require.NoError(t, err)
	assert.Equal(t, 12, p.StockQuantity)

	_, err = repo.AdjustStock(ctx, domain.InventoryMovement{
		ProductID: "p1", MovementType: domain.MovementOut, Quantity: -13, Reason: "Damaged",
	})
	var shortage *domain.StockShortage
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, 12, shortage.Available)
	assert.Equal(t, 13, shortage.Requested)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// 失败的调整不留流水
	movements, err := repo.ListMovements(ctx, "p1", 0)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, 7, movements[0].Quantity)
	assert.Equal(t, "Restock", movements[0].Reason)

	_, err = repo.AdjustStock(ctx, domain.InventoryMovement{ProductID: "nope", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
