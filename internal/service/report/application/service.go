package application

import (
	"context"
	"fmt"
	"time"

	"nexuspos/internal/pkg/logger"
	"nexuspos/internal/service/report/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ReportQuery 是 GET /reports/sales 的查询参数
type ReportQuery struct {
	From   string
	To     string
	Filter string
}

// ReportService 生成区间销售报表
type ReportService struct {
	reader  domain.SalesReader
	filters domain.FilterCompiler
	tracer  trace.Tracer
	loc     *time.Location
	now     func() time.Time
	topN    int
}

func NewReportService(reader domain.SalesReader, filters domain.FilterCompiler, tracer trace.Tracer, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		reader:  reader,
		filters: filters,
		tracer:  tracer,
		loc:     loc,
		now:     time.Now,
		topN:    domain.DefaultTopN,
	}
}

func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// WithTopN 设置报表中畅销商品的个数
func (s *ReportService) WithTopN(n int) *ReportService {
	if n > 0 {
		s.topN = n
	}
	return s
}

// SalesReport 按日汇总区间内的销售。单头和明细并发读取，然后按筛选表达式过滤。
func (s *ReportService) SalesReport(ctx context.Context, q ReportQuery) (*domain.SalesReport, error) {
	ctx, span := s.tracer.Start(ctx, "report.SalesReport")
	defer span.End()

	period, err := domain.ParsePeriod(q.From, q.To, s.loc, s.now())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("report.from", period.From.Format(domain.DateLayout)),
		attribute.String("report.to", period.To.Format(domain.DateLayout)),
	)

	var filter domain.SaleFilter
	if q.Filter != "" {
		if s.filters == nil {
			return nil, domain.ErrInvalidFilter
		}
		if filter, err = s.filters.Compile(q.Filter); err != nil {
			return nil, err
		}
		span.SetAttributes(attribute.String("report.filter", q.Filter))
	}

	var (
		headers []domain.SaleFact
		lines   []domain.LineFact
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		headers, err = s.reader.SaleHeaders(gctx, period.From, period.End())
		return err
	})
	g.Go(func() error {
		var err error
		lines, err = s.reader.SaleLines(gctx, period.From, period.End())
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load sales failed")
		return nil, err
	}

	facts := domain.AttachLines(headers, lines)
	if filter != nil {
		kept := facts[:0]
		for _, f := range facts {
			ok, err := filter.Match(f)
			if err != nil {
				span.RecordError(err)
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFilter, err)
			}
			if ok {
				kept = append(kept, f)
			}
		}
		facts = kept
	}

	report := domain.BuildReport(period, facts, s.topN)
	report.Filter = q.Filter
	span.SetAttributes(attribute.Int("report.orders", report.Totals.Orders))
	logger.Ctx(ctx).Debug().
		Str("from", report.From).
		Str("to", report.To).
		Int("orders", report.Totals.Orders).
		Msg("Sales report generated")
	return report, nil
}
