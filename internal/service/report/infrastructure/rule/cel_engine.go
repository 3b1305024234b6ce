package rule

import (
	"fmt"
	"strings"
	"time"

	"nexuspos/internal/service/report/domain"

	"github.com/google/cel-go/cel"
)

// CELEngine 是 domain.FilterCompiler 的实现，用 CEL 表达式筛选销售单。
// 可用变量：
//
//	payment_method string   total/subtotal/discount double
//	promotion_id   string   items int   hour int   weekday int (0=周日)
//	products       list(string)，销售单中的商品 ID
//
// 例如：payment_method == "cash" && total >= 500.0
type CELEngine struct {
	env *cel.Env
	loc *time.Location
}

// NewCELEngine 创建引擎，hour 和 weekday 按 loc 计算。
func NewCELEngine(loc *time.Location) (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("payment_method", cel.StringType),
		cel.Variable("promotion_id", cel.StringType),
		cel.Variable("total", cel.DoubleType),
		cel.Variable("subtotal", cel.DoubleType),
		cel.Variable("discount", cel.DoubleType),
		cel.Variable("items", cel.IntType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("weekday", cel.IntType),
		cel.Variable("products", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CELEngine{env: env, loc: loc}, nil
}

// Compile 实现了 domain.FilterCompiler。空表达式返回 nil，表示不筛选。
func (e *CELEngine) Compile(expr string) (domain.SaleFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidFilter, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: expression must evaluate to bool, got %s", domain.ErrInvalidFilter, ast.OutputType())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidFilter, err)
	}
	return &celFilter{prg: prg, loc: e.loc}, nil
}

type celFilter struct {
	prg cel.Program
	loc *time.Location
}

func (f *celFilter) Match(fact domain.SaleFact) (bool, error) {
	products := make([]string, 0, len(fact.Lines))
	for _, l := range fact.Lines {
		products = append(products, l.ProductID)
	}
	at := fact.CreatedAt.In(f.loc)

	out, _, err := f.prg.Eval(map[string]interface{}{
		"payment_method": fact.PaymentMethod,
		"promotion_id":   fact.PromotionID,
		"total":          fact.Total.InexactFloat64(),
		"subtotal":       fact.Subtotal.InexactFloat64(),
		"discount":       fact.Discount.InexactFloat64(),
		"items":          int64(fact.Items()),
		"hour":           int64(at.Hour()),
		"weekday":        int64(at.Weekday()),
		"products":       products,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate filter on sale %s: %w", fact.SaleID, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter on sale %s returned %T", fact.SaleID, out.Value())
	}
	return matched, nil
}
