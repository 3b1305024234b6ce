package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DateLayout    = "2006-01-02"
	DefaultTopN   = 10
	DefaultDays   = 7
	MaxPeriodDays = 366
)

var (
	ErrInvalidPeriod = errors.New("invalid report period")
	ErrInvalidFilter = errors.New("invalid sale filter")
)

// Period 是按门店时区切分的自然日区间，From 和 To 都包含在内。
type Period struct {
	From time.Time // From 当天 00:00
	To   time.Time // To 当天 00:00
}

// ParsePeriod 解析 YYYY-MM-DD 格式的起止日期。
// to 为空时取 today；from 为空时取 to 往前 DefaultDays-1 天。
func ParsePeriod(from, to string, loc *time.Location, today time.Time) (Period, error) {
	var p Period
	var err error

	if to == "" {
		t := today.In(loc)
		p.To = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	} else if p.To, err = time.ParseInLocation(DateLayout, to, loc); err != nil {
		return Period{}, fmt.Errorf("%w: to %q is not YYYY-MM-DD", ErrInvalidPeriod, to)
	}

	if from == "" {
		p.From = p.To.AddDate(0, 0, -(DefaultDays - 1))
	} else if p.From, err = time.ParseInLocation(DateLayout, from, loc); err != nil {
		return Period{}, fmt.Errorf("%w: from %q is not YYYY-MM-DD", ErrInvalidPeriod, from)
	}

	if p.From.After(p.To) {
		return Period{}, fmt.Errorf("%w: from %s is after to %s", ErrInvalidPeriod, p.From.Format(DateLayout), p.To.Format(DateLayout))
	}
	if days := p.Days(); days > MaxPeriodDays {
		return Period{}, fmt.Errorf("%w: %d days exceeds the %d day limit", ErrInvalidPeriod, days, MaxPeriodDays)
	}
	return p, nil
}

// End 返回区间的右开边界，即 To 的次日零点。
func (p Period) End() time.Time {
	return p.To.AddDate(0, 0, 1)
}

func (p Period) Days() int {
	n := 0
	for d := p.From; !d.After(p.To); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// DailySummary 是某一天的销售汇总
type DailySummary struct {
	Date          string          `json:"date"`
	Sales         decimal.Decimal `json:"sales"`
	Discount      decimal.Decimal `json:"discount"`
	Orders        int             `json:"orders"`
	Items         int             `json:"items"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
}

// ProductSummary 是某商品在统计区间内的销量和销售额
type ProductSummary struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type Totals struct {
	Sales         decimal.Decimal `json:"sales"`
	Discount      decimal.Decimal `json:"discount"`
	Orders        int             `json:"orders"`
	Items         int             `json:"items"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
}

// SalesReport 是一个区间的销售报表
type SalesReport struct {
	From        string           `json:"from"`
	To          string           `json:"to"`
	Filter      string           `json:"filter,omitempty"`
	Daily       []DailySummary   `json:"daily"`
	Totals      Totals           `json:"totals"`
	TopProducts []ProductSummary `json:"top_products"`
}

// BuildReport 汇总已筛选的销售事实。没有销售的日期也会出现在 Daily 中，数值为零。
func BuildReport(period Period, facts []SaleFact, topN int) *SalesReport {
	if topN <= 0 {
		topN = DefaultTopN
	}
	loc := period.From.Location()

	report := &SalesReport{
		From:  period.From.Format(DateLayout),
		To:    period.To.Format(DateLayout),
		Daily: make([]DailySummary, 0, period.Days()),
	}
	index := make(map[string]int, period.Days())
	for d := period.From; !d.After(period.To); d = d.AddDate(0, 0, 1) {
		key := d.Format(DateLayout)
		index[key] = len(report.Daily)
		report.Daily = append(report.Daily, DailySummary{Date: key})
	}

	products := make(map[string]*ProductSummary)
	for _, f := range facts {
		i, ok := index[f.CreatedAt.In(loc).Format(DateLayout)]
		if !ok {
			continue
		}
		day := &report.Daily[i]
		day.Sales = day.Sales.Add(f.Total)
		day.Discount = day.Discount.Add(f.Discount)
		day.Orders++
		day.Items += f.Items()

		for _, l := range f.Lines {
			ps, ok := products[l.ProductID]
			if !ok {
				ps = &ProductSummary{ProductID: l.ProductID, ProductName: l.ProductName}
				products[l.ProductID] = ps
			}
			ps.Quantity += l.Quantity
			ps.Revenue = ps.Revenue.Add(l.Revenue)
		}
	}

	for i := range report.Daily {
		day := &report.Daily[i]
		day.AvgOrderValue = average(day.Sales, day.Orders)
		report.Totals.Sales = report.Totals.Sales.Add(day.Sales)
		report.Totals.Discount = report.Totals.Discount.Add(day.Discount)
		report.Totals.Orders += day.Orders
		report.Totals.Items += day.Items
	}
	report.Totals.AvgOrderValue = average(report.Totals.Sales, report.Totals.Orders)
	report.TopProducts = TopProducts(products, topN)
	return report
}

// TopProducts 按销售额降序取前 n 个，销售额相同时销量多的在前，再按 ID。
func TopProducts(products map[string]*ProductSummary, n int) []ProductSummary {
	out := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func average(sum decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(2)
}
