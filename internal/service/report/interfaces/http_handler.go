package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"nexuspos/internal/pkg/logger"
	"nexuspos/internal/service/report/application"
	"nexuspos/internal/service/report/domain"
)

// ReportHandler 提供区间销售报表
type ReportHandler struct {
	service *application.ReportService
}

func NewReportHandler(service *application.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /reports/sales", h.salesReport)
}

func (h *ReportHandler) salesReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := h.service.SalesReport(r.Context(), application.ReportQuery{
		From:   q.Get("from"),
		To:     q.Get("to"),
		Filter: q.Get("filter"),
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPeriod) || errors.Is(err, domain.ErrInvalidFilter) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		logger.Ctx(r.Context()).Error().Err(err).Msg("sales report failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build sales report"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// LiveHandler 提供当天实时汇总和 WebSocket 推送
type LiveHandler struct {
	projection domain.LiveProjection
	hub        *Hub
	loc        *time.Location
	now        func() time.Time
}

func NewLiveHandler(projection domain.LiveProjection, hub *Hub, loc *time.Location) *LiveHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &LiveHandler{projection: projection, hub: hub, loc: loc, now: time.Now}
}

func (h *LiveHandler) WithClock(now func() time.Time) *LiveHandler {
	h.now = now
	return h
}

func (h *LiveHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /live/today", h.today)
	mux.HandleFunc("GET /live/{date}", h.byDate)
	if h.hub != nil {
		mux.HandleFunc("GET /ws/feed", h.hub.ServeWs)
	}
}

func (h *LiveHandler) today(w http.ResponseWriter, r *http.Request) {
	h.snapshot(w, r, h.now().In(h.loc).Format(domain.DateLayout))
}

func (h *LiveHandler) byDate(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}
	h.snapshot(w, r, date)
}

func (h *LiveHandler) snapshot(w http.ResponseWriter, r *http.Request, date string) {
	snap, err := h.projection.Snapshot(r.Context(), date)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Str("date", date).Msg("live snapshot failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "live projection unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
