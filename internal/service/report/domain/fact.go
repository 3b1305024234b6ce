package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SaleFact 是报表关心的一张已完成销售单
type SaleFact struct {
	SaleID        string
	CreatedAt     time.Time
	PaymentMethod string
	PromotionID   string
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	Lines         []LineFact
}

// LineFact 是销售单中的一行
type LineFact struct {
	SaleID      string
	ProductID   string
	ProductName string
	Quantity    int
	Revenue     decimal.Decimal
}

// Items 返回销售单的商品总件数
func (f SaleFact) Items() int {
	n := 0
	for _, l := range f.Lines {
		n += l.Quantity
	}
	return n
}

// SalesReader 读取区间 [from, to) 内已完成的销售。
type SalesReader interface {
	SaleHeaders(ctx context.Context, from, to time.Time) ([]SaleFact, error)
	SaleLines(ctx context.Context, from, to time.Time) ([]LineFact, error)
}

// SaleFilter 判断一张销售单是否计入报表。
type SaleFilter interface {
	Match(f SaleFact) (bool, error)
}

// FilterCompiler 把筛选表达式编译成 SaleFilter。表达式错误时返回 ErrInvalidFilter。
type FilterCompiler interface {
	Compile(expr string) (SaleFilter, error)
}

// AttachLines 按 SaleID 把明细挂到对应的销售单上，找不到销售单的明细被丢弃。
func AttachLines(headers []SaleFact, lines []LineFact) []SaleFact {
	index := make(map[string]int, len(headers))
	for i := range headers {
		index[headers[i].SaleID] = i
	}
	for _, l := range lines {
		if i, ok := index[l.SaleID]; ok {
			headers[i].Lines = append(headers[i].Lines, l)
		}
	}
	return headers
}
