package infrastructure

import (
	"context"
	"sort"
	"sync"

	catalog "nexuspos/internal/service/catalog/domain"
	promotion "nexuspos/internal/service/promotion/domain"
	"nexuspos/internal/service/sale/domain"
	"nexuspos/internal/service/sale/domain/port"
)

// MemoryStore 是进程内的商品、促销和销售存储，供测试使用。
// 一个工作单元在状态副本上执行，成功后整体替换，失败时原状态不受影响。
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
}

type memoryState struct {
	products   map[string]catalog.Product
	promotions map[string]promotion.Promotion
	sales      map[string]domain.Sale
	movements  []catalog.InventoryMovement
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memoryState{
		products:   make(map[string]catalog.Product),
		promotions: make(map[string]promotion.Promotion),
		sales:      make(map[string]domain.Sale),
	}}
}

func (s *MemoryStore) PutProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[p.ID] = p
}

func (s *MemoryStore) PutPromotion(p promotion.Promotion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.promotions[p.ID] = clonePromotion(p)
}

// GetProduct 实现 port.CatalogReader
func (s *MemoryStore) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

func (s *MemoryStore) ListActiveProducts(_ context.Context) ([]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Product, 0, len(s.state.products))
	for _, p := range s.state.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetPromotion 实现 port.PromotionReader
func (s *MemoryStore) GetPromotion(_ context.Context, id string) (*promotion.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.promotions[id]
	if !ok {
		return nil, promotion.ErrPromotionNotFound
	}
	p = clonePromotion(p)
	return &p, nil
}

// ListActivePromotions 只按开关过滤，时间窗口和门槛由求值器判断。按最低消费升序，其次按 ID。
func (s *MemoryStore) ListActivePromotions(_ context.Context) ([]promotion.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]promotion.Promotion, 0, len(s.state.promotions))
	for _, p := range s.state.promotions {
		if p.IsActive {
			out = append(out, clonePromotion(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].MinAmount.Cmp(out[j].MinAmount); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// FindByID 实现 domain.SaleRepository
func (s *MemoryStore) FindByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.state.sales[id]
	if !ok {
		return nil, domain.ErrSaleNotFound
	}
	return cloneSale(sale), nil
}

// SaleCount 返回已提交的销售单数量
func (s *MemoryStore) SaleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.sales)
}

// Movements 返回某个商品的库存流水，按写入顺序。
func (s *MemoryStore) Movements(productID string) []catalog.InventoryMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []catalog.InventoryMovement
	for _, m := range s.state.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out
}

// Do 实现 port.UnitOfWork。整个工作单元持有同一把锁，天然串行。
func (s *MemoryStore) Do(ctx context.Context, fn func(tx port.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

type memoryTx struct {
	state memoryState
}

func (t *memoryTx) CreateSale(_ context.Context, sale *domain.Sale) error {
	t.state.sales[sale.ID] = *cloneSale(*sale)
	return nil
}

func (t *memoryTx) AdjustStock(_ context.Context, productID string, delta int) (int, error) {
	p, ok := t.state.products[productID]
	if !ok {
		return 0, catalog.ErrProductNotFound
	}
	if p.StockQuantity+delta < 0 {
		return 0, &catalog.StockShortage{ProductID: p.ID, Name: p.Name, Available: p.StockQuantity, Requested: -delta}
	}
	p.StockQuantity += delta
	t.state.products[productID] = p
	return p.StockQuantity, nil
}

func (t *memoryTx) IncrementUsage(_ context.Context, promotionID string) error {
	p, ok := t.state.promotions[promotionID]
	if !ok {
		return promotion.ErrPromotionNotFound
	}
	if p.Exhausted() {
		return promotion.ErrUsageCapExceeded
	}
	p.UsageCount++
	t.state.promotions[promotionID] = p
	return nil
}

func (t *memoryTx) RecordMovement(_ context.Context, m catalog.InventoryMovement) error {
	t.state.movements = append(t.state.movements, m)
	return nil
}

func (st memoryState) clone() memoryState {
	out := memoryState{
		products:   make(map[string]catalog.Product, len(st.products)),
		promotions: make(map[string]promotion.Promotion, len(st.promotions)),
		sales:      make(map[string]domain.Sale, len(st.sales)),
		movements:  make([]catalog.InventoryMovement, len(st.movements)),
	}
	for k, v := range st.products {
		out.products[k] = v
	}
	for k, v := range st.promotions {
		out.promotions[k] = v
	}
	for k, v := range st.sales {
		out.sales[k] = v
	}
	copy(out.movements, st.movements)
	return out
}

func clonePromotion(p promotion.Promotion) promotion.Promotion {
	if p.MaxUsage != nil {
		max := *p.MaxUsage
		p.MaxUsage = &max
	}
	if p.EndDate != nil {
		end := *p.EndDate
		p.EndDate = &end
	}
	return p
}

func cloneSale(s domain.Sale) *domain.Sale {
	s.Items = append([]domain.SaleItem(nil), s.Items...)
	if s.PromotionID != nil {
		id := *s.PromotionID
		s.PromotionID = &id
	}
	return &s
}
