package interfaces

import (
	"errors"
	"net/http"

	"nexuspos/internal/pkg/logger"
	"nexuspos/internal/service/promotion/application"
	"nexuspos/internal/service/promotion/domain"

	"github.com/gin-gonic/gin"
)

// PromotionHandler 封装了促销管理的 HTTP 处理器
type PromotionHandler struct {
	service *application.PromotionService
}

// NewPromotionHandler 创建一个新的 HTTP 处理器实例
func NewPromotionHandler(service *application.PromotionService) *PromotionHandler {
	return &PromotionHandler{service: service}
}

// RegisterRoutes 在路由组上注册所有路由
func (h *PromotionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/promotions")
	g.GET("", h.List)
	g.GET("/active", h.ListActive)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id/active", h.SetActive)
	g.DELETE("/:id", h.Delete)
}

func (h *PromotionHandler) Create(c *gin.Context) {
	var req application.PromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, application.ToPromotionResponse(p))
}

func (h *PromotionHandler) Update(c *gin.Context) {
	var req application.PromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, application.ToPromotionResponse(p))
}

func (h *PromotionHandler) Get(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, application.ToPromotionResponse(p))
}

func (h *PromotionHandler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponses(list))
}

func (h *PromotionHandler) ListActive(c *gin.Context) {
	list, err := h.service.ListActivePromotions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponses(list))
}

func (h *PromotionHandler) SetActive(c *gin.Context) {
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

func (h *PromotionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// fail 根据错误类型返回不同的 HTTP 状态码
func (h *PromotionHandler) fail(c *gin.Context, err error) {
	var statusCode int
	switch {
	case errors.Is(err, domain.ErrPromotionNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPromotion):
		statusCode = http.StatusBadRequest
	default:
		statusCode = http.StatusInternalServerError
		logger.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("promotion request failed")
	}
	c.JSON(statusCode, gin.H{"error": err.Error()})
}

func toResponses(list []domain.Promotion) []application.PromotionResponse {
	out := make([]application.PromotionResponse, 0, len(list))
	for i := range list {
		out = append(out, application.ToPromotionResponse(&list[i]))
	}
	return out
}
