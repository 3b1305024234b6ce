package interfaces

import (
	"errors"
	"net/http"
	"strconv"

	"nexuspos/internal/pkg/logger"
	"nexuspos/internal/service/catalog/application"
	"nexuspos/internal/service/catalog/domain"

	"github.com/gin-gonic/gin"
)

// ProductHandler 是商品目录的 HTTP 处理器
type ProductHandler struct {
	service *application.CatalogService
}

func NewProductHandler(service *application.CatalogService) *ProductHandler {
	return &ProductHandler{service: service}
}

func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/products")
	g.GET("", h.List)
	g.GET("/low-stock", h.LowStock)
	g.GET("/:id", h.Get)
	g.GET("/:id/movements", h.Movements)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id/active", h.SetActive)
	g.POST("/:id/stock", h.AdjustStock)
	g.DELETE("/:id", h.Delete)
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req application.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, application.ToProductResponse(p))
}

func (h *ProductHandler) Update(c *gin.Context) {
	var req application.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, application.ToProductResponse(p))
}

func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, application.ToProductResponse(p))
}

// List 支持 ?active=true&category=&search=
func (h *ProductHandler) List(c *gin.Context) {
	filter := domain.ProductFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	filter.ActiveOnly, _ = strconv.ParseBool(c.DefaultQuery("active", "false"))

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponses(list))
}

func (h *ProductHandler) LowStock(c *gin.Context) {
	list, err := h.service.LowStock(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponses(list))
}

func (h *ProductHandler) SetActive(c *gin.Context) {
	var body struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.SetActive(c.Request.Context(), c.Param("id"), *body.IsActive); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProductHandler) AdjustStock(c *gin.Context) {
	var req application.StockAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.service.AdjustStock(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, application.ToProductResponse(p))
}

func (h *ProductHandler) Movements(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.service.Movements(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]application.MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, application.ToMovementResponse(m))
	}
	c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) fail(c *gin.Context, err error) {
	var statusCode int
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidProduct):
		statusCode = http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateSKU), errors.Is(err, domain.ErrDuplicateBarcode),
		errors.Is(err, domain.ErrInsufficientStock):
		statusCode = http.StatusConflict
	default:
		statusCode = http.StatusInternalServerError
		logger.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("catalog request failed")
	}
	c.JSON(statusCode, gin.H{"error": err.Error()})
}

func toResponses(list []domain.Product) []application.ProductResponse {
	out := make([]application.ProductResponse, 0, len(list))
	for i := range list {
		out = append(out, application.ToProductResponse(&list[i]))
	}
	return out
}
