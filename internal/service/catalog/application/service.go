package application

import (
	"context"
	"time"

	"nexuspos/internal/pkg/logger"
	"nexuspos/internal/service/catalog/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CatalogService 负责商品资料和库存调整，同时为结账流程提供商品快照。
type CatalogService struct {
	repo            domain.ProductRepository
	tracer          trace.Tracer
	defaultMinStock int
}

func NewCatalogService(repo domain.ProductRepository, tracer trace.Tracer, defaultMinStock int) *CatalogService {
	if defaultMinStock < 0 {
		defaultMinStock = domain.DefaultMinStockLevel
	}
	return &CatalogService{repo: repo, tracer: tracer, defaultMinStock: defaultMinStock}
}

func (s *CatalogService) Create(ctx context.Context, req *ProductRequest) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Create")
	defer span.End()

	p := &domain.Product{ID: uuid.New().String()}
	req.applyTo(p, s.defaultMinStock, true)
	if err := p.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create product")
		return nil, err
	}

	span.SetAttributes(attribute.String("product.id", p.ID))
	logger.Ctx(ctx).Info().Str("product", p.ID).Str("name", p.Name).Int("stock", p.StockQuantity).Msg("Product created")
	return p, nil
}

func (s *CatalogService) Update(ctx context.Context, id string, req *ProductRequest) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Update", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	req.applyTo(p, s.defaultMinStock, false)
	if err := p.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	p.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, p); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update product")
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *CatalogService) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	return s.repo.List(ctx, filter)
}

func (s *CatalogService) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	logger.Ctx(ctx).Info().Str("product", id).Bool("active", active).Msg("Product toggled")
	return nil
}

// Deactivate 停用商品。已有销售记录引用商品，所以不做物理删除。
func (s *CatalogService) Deactivate(ctx context.Context, id string) error {
	return s.SetActive(ctx, id, false)
}

// AdjustStock 手工入库、出库或盘点调整，写入一条库存流水。
func (s *CatalogService) AdjustStock(ctx context.Context, id string, req *StockAdjustmentRequest) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.AdjustStock", trace.WithAttributes(
		attribute.String("product.id", id),
		attribute.String("movement.type", req.MovementType),
	))
	defer span.End()

	t := domain.MovementType(req.MovementType)
	delta, err := domain.SignedDelta(t, req.Quantity)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	p, err := s.repo.AdjustStock(ctx, domain.InventoryMovement{
		ID:           uuid.New().String(),
		ProductID:    id,
		MovementType: t,
		Quantity:     delta,
		Reason:       req.Reason,
		Notes:        req.Notes,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().Str("product", id).Int("delta", delta).Int("stock", p.StockQuantity).
		Bool("low_stock", p.IsLowStock()).Msg("Stock adjusted")
	return p, nil
}

func (s *CatalogService) LowStock(ctx context.Context) ([]domain.Product, error) {
	return s.repo.LowStock(ctx)
}

func (s *CatalogService) Movements(ctx context.Context, id string, limit int) ([]domain.InventoryMovement, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, id, limit)
}

// ListActiveProducts 返回所有在售商品。
func (s *CatalogService) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx, domain.ProductFilter{ActiveOnly: true})
}

// GetProduct 读取商品最新快照，不存在时返回 domain.ErrProductNotFound。
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.FindByID(ctx, id)
}
