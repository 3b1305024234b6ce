// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"nexuspos/internal/pkg/logger"
	"nexuspos/internal/pkg/nacos"
	"nexuspos/internal/pkg/tracing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	zlog "github.com/rs/zerolog/log"
)

type AppCtx struct {
	Mux    *http.ServeMux
	Nacos  *nacos.Client // 未启用服务注册时为 nil
	Config *Config

	hooks *[]func(ctx context.Context)
}

// OnShutdown 注册一个关停钩子。钩子按注册的逆序执行。
func (a AppCtx) OnShutdown(fn func(ctx context.Context)) {
	*a.hooks = append(*a.hooks, fn)
}

// AppInfo 包含了启动一个服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Port             int                 // 为 0 时使用配置中的 app.port
	RegisterHandlers func(appCtx AppCtx) // 每个服务注册自己的 HTTP 路由和后台组件
}

// StartService 封装了所有服务的通用启动和优雅关停逻辑。
func StartService(info AppInfo) {
	cfg, err := Init()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(info.ServiceName, cfg.App.LogLevel)

	port := info.Port
	if port == 0 {
		port = cfg.App.Port
	}

	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	var (
		namingClient *nacos.Client
		ip           string
	)
	if cfg.Infra.Nacos.Enabled {
		namingClient, err = nacos.NewNacosClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			zlog.Fatal().Err(err).Msg("failed to initialize nacos client")
		}
		ip, err = getOutboundIP()
		if err != nil {
			zlog.Fatal().Err(err).Msg("failed to get outbound IP address")
		}
		if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, port); err != nil {
			zlog.Fatal().Err(err).Msg("failed to register service with nacos")
		}
	}

	var hooks []func(ctx context.Context)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux, Nacos: namingClient, Config: cfg, hooks: &hooks})
	}

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           logger.Middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zlog.Info().Msgf("%s listening on :%d", info.ServiceName, port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msgf("could not listen on %s", server.Addr)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msgf("Shutting down service %s...", info.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 先摘流量，再停后台组件，最后关 tracer 和 HTTP server
	if namingClient != nil {
		if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, port); err != nil {
			zlog.Error().Err(err).Msg("Error deregistering from Nacos")
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i](ctx)
	}

	if err := tp.Shutdown(ctx); err != nil {
		zlog.Error().Err(err).Msg("Error shutting down tracer provider")
	}

	if err := server.Shutdown(ctx); err != nil {
		zlog.Error().Err(err).Msg("Error shutting down http server")
	}

	zlog.Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
}

// getOutboundIP 返回本机对外通信使用的 IP，用于服务注册。
func getOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
