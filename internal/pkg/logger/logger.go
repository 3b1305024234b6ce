// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"net/http"
	"os"
	"strings"

	"nexuspos/internal/pkg/tracing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Init 配置全局 zerolog logger，每条日志都带上服务名。
func Init(serviceName, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zlog.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", serviceName).Logger()
}

// Ctx 返回与 ctx 绑定的 logger。
// ctx 中没有 logger 时退回全局 logger；有活跃 span 时附带 trace_id。
func Ctx(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = &zlog.Logger
	}
	if traceID := tracing.GetTraceIDFromContext(ctx); traceID != "" {
		withTrace := l.With().Str("trace_id", traceID).Logger()
		return &withTrace
	}
	return l
}

// Middleware 提取上游的 trace 上下文，并把带 trace_id 的 logger 注入请求 context。
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		l := zlog.With().Str("path", r.URL.Path)
		if traceID := tracing.GetTraceIDFromContext(ctx); traceID != "" {
			l = l.Str("trace_id", traceID)
		}
		logger := l.Logger()
		ctx = logger.WithContext(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
