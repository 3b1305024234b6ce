package application

import (
	"context"
	"fmt"
	"testing"

	"nexuspos/internal/service/catalog/domain"
	"nexuspos/internal/service/catalog/infrastructure"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *CatalogService {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(infrastructure.Models()...))

	return NewCatalogService(infrastructure.NewGormProductRepository(db), otel.Tracer("test"), 3)
}

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intp(i int) *int { return &i }

func TestCatalogService_CreateDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, &ProductRequest{
		Name:         "  Soap ",
		SKU:          " SOAP-1 ",
		SellingPrice: money("25.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Soap", p.Name)
	assert.Equal(t, "SOAP-1", p.SKU)
	assert.Equal(t, domain.DefaultUnit, p.Unit)
	assert.Equal(t, 3, p.MinStockLevel)
	assert.True(t, p.IsActive)
	assert.Equal(t, 0, p.StockQuantity)
}

func TestCatalogService_LegacyAliases(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, &ProductRequest{
		Name:  "Milk",
		Price: money("42"),
		Cost:  money("30"),
		Stock: intp(12),
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(42).Equal(p.SellingPrice))
	assert.True(t, decimal.NewFromInt(30).Equal(p.CostPrice))
	assert.Equal(t, 12, p.StockQuantity)

	// 标准字段优先于别名
	p, err = svc.Create(ctx, &ProductRequest{
		Name:         "Juice",
		SellingPrice: money("50"),
		Price:        money("1"),
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(p.SellingPrice))
}

func TestCatalogService_CreateValidates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  ProductRequest
	}{
		{"missing price", ProductRequest{Name: "x"}},
		{"zero price", ProductRequest{Name: "x", SellingPrice: money("0")}},
		{"negative cost", ProductRequest{Name: "x", SellingPrice: money("1"), CostPrice: money("-1")}},
		{"negative stock", ProductRequest{Name: "x", SellingPrice: money("1"), StockQuantity: intp(-1)}},
		{"blank name", ProductRequest{Name: "   ", SellingPrice: money("1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, &tt.req)
			assert.ErrorIs(t, err, domain.ErrInvalidProduct)
		})
	}
}

func TestCatalogService_UpdateKeepsStock(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, &ProductRequest{Name: "Rice", SellingPrice: money("100"), StockQuantity: intp(8)})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, p.ID, &ProductRequest{Name: "Jasmine Rice", SellingPrice: money("120"), StockQuantity: intp(500)})
	require.NoError(t, err)
	assert.Equal(t, "Jasmine Rice", updated.Name)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.StockQuantity)
	assert.True(t, decimal.NewFromInt(120).Equal(got.SellingPrice))
	assert.True(t, got.IsActive)

	_, err = svc.Update(ctx, "missing", &ProductRequest{Name: "x", SellingPrice: money("1")})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestCatalogService_AdjustStock(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, &ProductRequest{Name: "Eggs", SellingPrice: money("5"), StockQuantity: intp(10)})
	require.NoError(t, err)

	got, err := svc.AdjustStock(ctx, p.ID, &StockAdjustmentRequest{MovementType: "out", Quantity: 4, Reason: "Broken"})
	require.NoError(t, err)
	assert.Equal(t, 6, got.StockQuantity)

	got, err = svc.AdjustStock(ctx, p.ID, &StockAdjustmentRequest{MovementType: "adjustment", Quantity: -3, Reason: "Count"})
	require.NoError(t, err)
	assert.Equal(t, 3, got.StockQuantity)
	assert.True(t, got.IsLowStock())

	_, err = svc.AdjustStock(ctx, p.ID, &StockAdjustmentRequest{MovementType: "out", Quantity: 4})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = svc.AdjustStock(ctx, p.ID, &StockAdjustmentRequest{MovementType: "in", Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)

	movements, err := svc.Movements(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, movements, 2)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, p.ID, low[0].ID)
}

func TestCatalogService_DeactivateHidesFromActiveList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, &ProductRequest{Name: "Candle", SellingPrice: money("9")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &ProductRequest{Name: "Match", SellingPrice: money("1")})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, p.ID))

	active, err := svc.ListActiveProducts(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Match", active[0].Name)

	// 停用的商品仍可读取，结账时由校验步骤拒绝
	got, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}
