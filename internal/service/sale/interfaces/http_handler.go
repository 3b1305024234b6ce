package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"nexuspos/internal/pkg/logger"
	"nexuspos/internal/service/sale/application"
	"nexuspos/internal/service/sale/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CheckoutHandler 封装了收银终端使用的 HTTP 接口
type CheckoutHandler struct {
	service *application.CheckoutService
}

func NewCheckoutHandler(service *application.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *CheckoutHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /checkout", h.checkout)
	mux.HandleFunc("POST /cart/quote", h.quote)
	mux.HandleFunc("GET /sales/{id}", h.getSale)
}

func (h *CheckoutHandler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req application.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	cart, err := h.service.BuildCart(ctx, req.Items)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	auto := h.service.AutoPromotionDefault()
	if req.AutoPromotion != nil {
		auto = *req.AutoPromotion
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("cart.items", len(req.Items)),
		attribute.Bool("promotion.auto", auto),
	)

	sale, err := h.service.Checkout(ctx, cart, domain.CheckoutOptions{
		PromotionID:   req.PromotionID,
		AutoPromotion: auto,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Notes:         req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (h *CheckoutHandler) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req application.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	cart, err := h.service.BuildCart(ctx, req.Items)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.service.Quote(ctx, cart, req.PromotionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *CheckoutHandler) getSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.GetSale(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrSaleNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

// fail 按结账错误分类返回状态码：
// 校验 400，促销不可用或次数用尽 403，库存不足 409，提交失败 503。
func (h *CheckoutHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ce, ok := domain.AsCheckoutError(err)
	if !ok {
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("checkout request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	var statusCode int
	switch ce.Kind {
	case domain.KindValidation:
		statusCode = http.StatusBadRequest
	case domain.KindPromotionNotApplicable, domain.KindUsageCapExceeded:
		statusCode = http.StatusForbidden
	case domain.KindInsufficientStock:
		statusCode = http.StatusConflict
	default:
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, application.ToErrorResponse(ce))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
