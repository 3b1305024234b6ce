package interfaces

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nexuspos/internal/service/catalog/application"
	"nexuspos/internal/service/catalog/infrastructure"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(infrastructure.Models()...))

	svc := application.NewCatalogService(infrastructure.NewGormProductRepository(db), otel.Tracer("test"), 5)
	r := gin.New()
	NewProductHandler(svc).RegisterRoutes(r.Group("/api"))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProductHandler_Lifecycle(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPost, "/api/products", `{"name":"Cola","sku":"COLA","price":"15","stock":6}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created application.ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, decimal.NewFromInt(15).Equal(created.SellingPrice))
	assert.Equal(t, 6, created.StockQuantity)
	assert.False(t, created.LowStock)

	w = do(r, http.MethodPost, "/api/products/"+created.ID+"/stock", `{"movement_type":"out","quantity":2,"reason":"Expired"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var adjusted application.ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &adjusted))
	assert.Equal(t, 4, adjusted.StockQuantity)
	assert.True(t, adjusted.LowStock)

	w = do(r, http.MethodGet, "/api/products/low-stock", "")
	require.Equal(t, http.StatusOK, w.Code)
	var low []application.ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &low))
	require.Len(t, low, 1)

	w = do(r, http.MethodGet, "/api/products/"+created.ID+"/movements", "")
	require.Equal(t, http.StatusOK, w.Code)
	var movements []application.MovementResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &movements))
	require.Len(t, movements, 1)
	assert.Equal(t, -2, movements[0].Quantity)

	w = do(r, http.MethodDelete, "/api/products/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/products?active=true", "")
	var active []application.ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &active))
	assert.Empty(t, active)

	w = do(r, http.MethodGet, "/api/products/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestProductHandler_Errors(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPost, "/api/products", `{"name":"A","sku":"DUP","selling_price":"1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var a application.ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing name", http.MethodPost, "/api/products", `{"selling_price":"1"}`, http.StatusBadRequest},
		{"zero price", http.MethodPost, "/api/products", `{"name":"B","selling_price":"0"}`, http.StatusBadRequest},
		{"duplicate sku", http.MethodPost, "/api/products", `{"name":"B","sku":"DUP","selling_price":"1"}`, http.StatusConflict},
		{"unknown product", http.MethodGet, "/api/products/nope", "", http.StatusNotFound},
		{"bad movement type", http.MethodPost, "/api/products/" + a.ID + "/stock", `{"movement_type":"lost","quantity":1}`, http.StatusBadRequest},
		{"stock below zero", http.MethodPost, "/api/products/" + a.ID + "/stock", `{"movement_type":"out","quantity":1}`, http.StatusConflict},
		{"toggle missing flag", http.MethodPatch, "/api/products/" + a.ID + "/active", `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}
