package infrastructure

import (
	"context"
	"fmt"
	"testing"
	"time"

	"nexuspos/internal/service/promotion/domain"

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

	if err := db.AutoMigrate(&PromotionModel{}); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	return db
}

func newPromotion(id, min string, start time.Time) *domain.Promotion {
	return &domain.Promotion{
		ID:        id,
		Name:      "promo " + id,
		Type:      domain.DiscountTypeFixed,
		Value:     decimal.NewFromInt(10),
		MinAmount: decimal.RequireFromString(min),
		StartDate: start,
		IsActive:  true,
	}
}

func TestGormPromotionRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewGormPromotionRepository(setupTestDB(t))
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	max := 3
	p := newPromotion("p1", "150", start)
	p.MaxUsage = &max
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "promo p1", got.Name)
	assert.True(t, decimal.NewFromInt(150).Equal(got.MinAmount))
	require.NotNil(t, got.MaxUsage)
	assert.Equal(t, 3, *got.MaxUsage)

	got.Name = "renamed"
	got.UsageCount = 99 // 不应被 Update 写入
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", again.Name)
	assert.Equal(t, 0, again.UsageCount)

	require.NoError(t, repo.SetActive(ctx, "p1", false))
	again, _ = repo.FindByID(ctx, "p1")
	assert.False(t, again.IsActive)

	require.NoError(t, repo.Delete(ctx, "p1"))
	_, err = repo.FindByID(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrPromotionNotFound)

	assert.ErrorIs(t, repo.SetActive(ctx, "missing", true), domain.ErrPromotionNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "missing"), domain.ErrPromotionNotFound)
}

func TestGormPromotionRepository_ListActive(t *testing.T) {
	ctx := context.Background()
	repo := NewGormPromotionRepository(setupTestDB(t))
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, -1, 0)

	expired := newPromotion("expired", "0", past)
	end := now.Add(-time.Hour)
	expired.EndDate = &end

	future := newPromotion("future", "0", now.Add(time.Hour))

	inactive := newPromotion("inactive", "0", past)
	inactive.IsActive = false

	openEnded := newPromotion("b-300", "300", past)
	endsLater := newPromotion("a-150", "150", past)
	later := now.Add(24 * time.Hour)
	endsLater.EndDate = &later
	tieOnMin := newPromotion("a-300", "300", past)

	for _, p := range []*domain.Promotion{expired, future, inactive, openEnded, endsLater, tieOnMin} {
		require.NoError(t, repo.Create(ctx, p))
	}
	active, err := repo.ListActive(ctx, now)
	require.NoError(t, err)

	ids := make([]string, 0, len(active))
	for _, p := range active {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a-150", "a-300", "b-300"}, ids)
}

func TestIncrementUsageTx(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormPromotionRepository(db)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	max := 2
	capped := newPromotion("capped", "0", start)
	capped.MaxUsage = &max
	require.NoError(t, repo.Create(ctx, capped))
	require.NoError(t, repo.Create(ctx, newPromotion("open", "0", start)))

	require.NoError(t, IncrementUsageTx(db, "capped"))
	require.NoError(t, IncrementUsageTx(db, "capped"))
	assert.ErrorIs(t, IncrementUsageTx(db, "capped"), domain.ErrUsageCapExceeded)

	for i := 0; i < 5; i++ {
		require.NoError(t, IncrementUsageTx(db, "open"))
	}
	assert.ErrorIs(t, IncrementUsageTx(db, "missing"), domain.ErrPromotionNotFound)

	got, err := repo.FindByID(ctx, "capped")
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsageCount)
	assert.True(t, got.Exhausted())

	got, _ = repo.FindByID(ctx, "open")
	assert.Equal(t, 5, got.UsageCount)
}

func TestGormPromotionRepository_UpdateCapNotBelowUsage(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormPromotionRepository(db)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	max := 5
	p := newPromotion("p1", "0", start)
	p.MaxUsage = &max
	require.NoError(t, repo.Create(ctx, p))

	// p 是使用前读到的副本，UsageCount 还是 0
	for i := 0; i < 3; i++ {
		require.NoError(t, IncrementUsageTx(db, "p1"))
	}

	lowered := 1
	p.MaxUsage = &lowered
	assert.ErrorIs(t, repo.Update(ctx, p), domain.ErrInvalidPromotion)

	got, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, *got.MaxUsage)
	assert.Equal(t, 3, got.UsageCount)

	exact := 3
	p.MaxUsage = &exact
	require.NoError(t, repo.Update(ctx, p))
	got, err = repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, *got.MaxUsage)
	assert.True(t, got.Exhausted())

	p.MaxUsage = nil
	require.NoError(t, repo.Update(ctx, p))

	missing := newPromotion("missing", "0", start)
	missing.MaxUsage = &max
	assert.ErrorIs(t, repo.Update(ctx, missing), domain.ErrPromotionNotFound)
}
