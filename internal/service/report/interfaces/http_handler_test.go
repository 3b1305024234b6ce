package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"nexuspos/internal/service/report/application"
	"nexuspos/internal/service/report/domain"
	"nexuspos/internal/service/report/infrastructure/rule"
	saledomain "nexuspos/internal/service/sale/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type stubReader struct {
	err error
}

func (r stubReader) SaleHeaders(context.Context, time.Time, time.Time) ([]domain.SaleFact, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []domain.SaleFact{
		{SaleID: "s1", CreatedAt: fixedNow, PaymentMethod: "cash", Total: decimal.NewFromInt(100)},
		{SaleID: "s2", CreatedAt: fixedNow, PaymentMethod: "card", Total: decimal.NewFromInt(40)},
	}, nil
}

func (r stubReader) SaleLines(context.Context, time.Time, time.Time) ([]domain.LineFact, error) {
	return nil, nil
}

type stubProjection struct {
	err  error
	date string
}

func (p *stubProjection) Apply(context.Context, *saledomain.SaleCompleted) (bool, error) {
	return true, nil
}

func (p *stubProjection) Snapshot(_ context.Context, date string) (*domain.LiveSnapshot, error) {
	p.date = date
	if p.err != nil {
		return nil, p.err
	}
	return &domain.LiveSnapshot{Date: date, Orders: 4, Sales: decimal.NewFromInt(200), TopProducts: []domain.ProductSummary{}}, nil
}

func setupMux(t *testing.T, reader domain.SalesReader, projection domain.LiveProjection) *http.ServeMux {
	engine, err := rule.NewCELEngine(time.UTC)
	require.NoError(t, err)
	svc := application.NewReportService(reader, engine, otel.Tracer("test"), time.UTC).
		WithClock(func() time.Time { return fixedNow })

	mux := http.NewServeMux()
	NewReportHandler(svc).RegisterRoutes(mux)
	NewLiveHandler(projection, nil, time.FixedZone("UTC+14", 14*3600)).
		WithClock(func() time.Time { return fixedNow }).
		RegisterRoutes(mux)
	return mux
}

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestReportHandler_SalesReport(t *testing.T) {
	mux := setupMux(t, stubReader{}, &stubProjection{})

	q := url.Values{"from": {"2025-06-14"}, "to": {"2025-06-15"}, "filter": {`payment_method == "cash"`}}
	rr := get(mux, "/reports/sales?"+q.Encode())

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var report domain.SalesReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, "2025-06-14", report.From)
	assert.Len(t, report.Daily, 2)
	assert.Equal(t, 1, report.Totals.Orders)
	assert.True(t, decimal.NewFromInt(100).Equal(report.Totals.Sales))
}

func TestReportHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		reader domain.SalesReader
		query  url.Values
		status int
	}{
		{"bad period", stubReader{}, url.Values{"from": {"2025-13-01"}}, http.StatusBadRequest},
		{"bad filter", stubReader{}, url.Values{"filter": {"total >="}}, http.StatusBadRequest},
		{"store failure", stubReader{err: errors.New("db down")}, url.Values{}, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mux := setupMux(t, tc.reader, &stubProjection{})
			rr := get(mux, "/reports/sales?"+tc.query.Encode())
			assert.Equal(t, tc.status, rr.Code)
			assert.Contains(t, rr.Body.String(), "error")
		})
	}
}

func TestLiveHandler_Today(t *testing.T) {
	projection := &stubProjection{}
	mux := setupMux(t, stubReader{}, projection)

	rr := get(mux, "/live/today")

	require.Equal(t, http.StatusOK, rr.Code)
	// 12:00 UTC 在 UTC+14 已经是 6/16
	assert.Equal(t, "2025-06-16", projection.date)
	var snap domain.LiveSnapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, 4, snap.Orders)
}

func TestLiveHandler_ByDate(t *testing.T) {
	projection := &stubProjection{}
	mux := setupMux(t, stubReader{}, projection)

	rr := get(mux, "/live/2025-06-01")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2025-06-01", projection.date)

	rr = get(mux, "/live/june")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLiveHandler_ProjectionUnavailable(t *testing.T) {
	mux := setupMux(t, stubReader{}, &stubProjection{err: errors.New("redis down")})

	rr := get(mux, "/live/today")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
