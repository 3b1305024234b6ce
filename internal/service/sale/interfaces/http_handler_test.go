package interfaces

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	catalog "nexuspos/internal/service/catalog/domain"
	promotion "nexuspos/internal/service/promotion/domain"
	"nexuspos/internal/service/sale/application"
	"nexuspos/internal/service/sale/application/chain"
	"nexuspos/internal/service/sale/domain"
	"nexuspos/internal/service/sale/infrastructure"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func setupMux(t *testing.T) (*http.ServeMux, *infrastructure.MemoryStore) {
	t.Helper()
	store := infrastructure.NewMemoryStore()
	store.PutProduct(catalog.Product{ID: "A", Name: "Apple", SellingPrice: decimal.NewFromInt(100), StockQuantity: 10, MinStockLevel: 2, IsActive: true})
	store.PutProduct(catalog.Product{ID: "off", Name: "Retired", SellingPrice: decimal.NewFromInt(1), StockQuantity: 10})
	store.PutPromotion(promotion.Promotion{
		ID: "P", Name: "Ten percent", Type: promotion.DiscountTypePercentage, Value: decimal.NewFromInt(10),
		MinAmount: decimal.NewFromInt(300), StartDate: now.Add(-time.Hour), IsActive: true,
	})
	max := 1
	store.PutPromotion(promotion.Promotion{
		ID: "R", Name: "Once", Type: promotion.DiscountTypeFixed, Value: decimal.NewFromInt(5),
		MinAmount: decimal.Zero, StartDate: now.Add(-time.Hour), IsActive: true, MaxUsage: &max, UsageCount: 1,
	})

	svc := application.NewCheckoutService(store, store, store, store, otel.Tracer("test"), chain.Settings{
		TaxRate: decimal.NewFromInt(7), MaxRetries: 1, RetryBackoff: time.Millisecond, CommitTimeout: time.Second,
	}).WithClock(func() time.Time { return now })

	mux := http.NewServeMux()
	NewCheckoutHandler(svc).RegisterRoutes(mux)
	return mux, store
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCheckoutHandler_Success(t *testing.T) {
	mux, store := setupMux(t)

	w := do(mux, http.MethodPost, "/checkout", `{"items":[{"product_id":"A","quantity":5}],"promotion_id":"P","payment_method":"card"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sale domain.Sale
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sale))
	assert.True(t, decimal.NewFromInt(450).Equal(sale.TotalAmount))
	assert.Equal(t, domain.PaymentCard, sale.PaymentMethod)
	assert.Equal(t, 1, store.SaleCount())

	w = do(mux, http.MethodGet, "/sales/"+sale.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var fetched domain.Sale
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, sale.ID, fetched.ID)
	assert.Len(t, fetched.Items, 1)

	w = do(mux, http.MethodGet, "/sales/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutHandler_AutoPromotionFlag(t *testing.T) {
	mux, _ := setupMux(t)

	w := do(mux, http.MethodPost, "/checkout", `{"items":[{"product_id":"A","quantity":4}],"auto_promotion":true}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sale domain.Sale
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sale))
	require.NotNil(t, sale.PromotionID)
	assert.Equal(t, "P", *sale.PromotionID)
	assert.True(t, decimal.NewFromInt(360).Equal(sale.TotalAmount))
}

func TestCheckoutHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantKind string
	}{
		{"malformed body", `{"items":`, http.StatusBadRequest, ""},
		{"empty cart", `{"items":[]}`, http.StatusBadRequest, "ValidationError"},
		{"zero quantity", `{"items":[{"product_id":"A","quantity":0}]}`, http.StatusBadRequest, "ValidationError"},
		{"inactive product", `{"items":[{"product_id":"off","quantity":1}]}`, http.StatusBadRequest, "ValidationError"},
		{"bad payment method", `{"items":[{"product_id":"A","quantity":1}],"payment_method":"iou"}`, http.StatusBadRequest, "ValidationError"},
		{"below minimum", `{"items":[{"product_id":"A","quantity":1}],"promotion_id":"P"}`, http.StatusForbidden, "PromotionNotApplicable"},
		{"unknown promotion", `{"items":[{"product_id":"A","quantity":1}],"promotion_id":"nope"}`, http.StatusForbidden, "PromotionNotApplicable"},
		{"usage cap", `{"items":[{"product_id":"A","quantity":1}],"promotion_id":"R"}`, http.StatusForbidden, "UsageCapExceeded"},
		{"insufficient stock", `{"items":[{"product_id":"A","quantity":11}]}`, http.StatusConflict, "InsufficientStock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, store := setupMux(t)
			w := do(mux, http.MethodPost, "/checkout", tt.body)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			assert.Equal(t, 0, store.SaleCount())

			if tt.wantKind == "" {
				return
			}
			var resp application.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestCheckoutHandler_InsufficientStockBody(t *testing.T) {
	mux, _ := setupMux(t)

	w := do(mux, http.MethodPost, "/checkout", `{"items":[{"product_id":"A","quantity":12}]}`)
	require.Equal(t, http.StatusConflict, w.Code)

	var resp application.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "A", resp.ProductID)
	assert.Equal(t, 12, resp.Requested)
	require.NotNil(t, resp.Available)
	assert.Equal(t, 10, *resp.Available)
}

func TestCheckoutHandler_Quote(t *testing.T) {
	mux, store := setupMux(t)

	w := do(mux, http.MethodPost, "/cart/quote", `{"items":[{"product_id":"A","quantity":5}],"promotion_id":"P"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var q application.QuoteResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.True(t, decimal.NewFromInt(500).Equal(q.Subtotal))
	assert.True(t, decimal.NewFromInt(450).Equal(q.Total))
	assert.Equal(t, "P", q.BestPromotionID)
	assert.Equal(t, 0, store.SaleCount())

	w = do(mux, http.MethodPost, "/cart/quote", `{"items":[{"product_id":"ghost","quantity":1}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
