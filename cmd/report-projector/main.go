package main

import (
	"context"

	"nexuspos/internal/pkg/bootstrap"
	"nexuspos/internal/pkg/mq"
	"nexuspos/internal/pkg/redis"
	"nexuspos/internal/service/report/application"
	"nexuspos/internal/service/report/infrastructure"
	"nexuspos/internal/service/report/interfaces"

	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

const serviceName = "report-projector"

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      serviceName,
		Port:             8090,
		RegisterHandlers: registerHandlers,
	})
}

func registerHandlers(appCtx bootstrap.AppCtx) {
	cfg := appCtx.Config
	loc := cfg.Store.Location()
	kafkaCfg := cfg.Infra.Kafka

	rdb, err := redis.NewClient(cfg.Infra.Redis.Addrs)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to redis")
	}
	projection, err := infrastructure.NewRedisLiveProjection(rdb, loc, cfg.Report.LiveTTL)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load live projection script")
	}
	projection.WithTopN(cfg.Report.TopProducts)

	reader := mq.NewKafkaReader(kafkaCfg.Brokers, kafkaCfg.SaleTopic, kafkaCfg.GroupID)
	dltWriter := mq.NewKafkaWriter(kafkaCfg.Brokers, mq.DLTTopic(kafkaCfg.SaleTopic))

	hub := interfaces.NewHub()
	projector := application.NewProjector(projection, mq.NewFailureHandler(dltWriter), otel.Tracer(serviceName), loc).
		WithBroadcaster(hub)

	interfaces.NewLiveHandler(projection, hub, loc).RegisterRoutes(appCtx.Mux)

	// hub 和消费循环在后台运行，关停时先取消再等它们退出
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		zlog.Info().Str("topic", kafkaCfg.SaleTopic).Str("group", kafkaCfg.GroupID).Msg("Projector consuming")
		return projector.Run(gctx, reader)
	})
	go func() {
		// 死信也写不进去时退出进程，重启后从未提交的 offset 重放
		if err := g.Wait(); err != nil {
			zlog.Fatal().Err(err).Msg("Projector stopped with error")
		}
	}()

	appCtx.OnShutdown(func(shutdownCtx context.Context) {
		cancel()
		done := make(chan struct{})
		go func() {
			g.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			zlog.Warn().Msg("Projector did not stop before shutdown deadline")
		}
		if err := reader.Close(); err != nil {
			zlog.Error().Err(err).Msg("Error closing kafka reader")
		}
		if err := dltWriter.Close(); err != nil {
			zlog.Error().Err(err).Msg("Error closing dead letter writer")
		}
		if err := rdb.Close(); err != nil {
			zlog.Error().Err(err).Msg("Error closing redis client")
		}
	})
}
