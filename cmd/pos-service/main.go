package main

import (
	"context"

	"nexuspos/internal/pkg/bootstrap"
	"nexuspos/internal/pkg/database"
	"nexuspos/internal/pkg/mq"
	catalogapp "nexuspos/internal/service/catalog/application"
	catalogstore "nexuspos/internal/service/catalog/infrastructure"
	catalogapi "nexuspos/internal/service/catalog/interfaces"
	promotionapp "nexuspos/internal/service/promotion/application"
	promotionstore "nexuspos/internal/service/promotion/infrastructure"
	promotionapi "nexuspos/internal/service/promotion/interfaces"
	reportapp "nexuspos/internal/service/report/application"
	reportstore "nexuspos/internal/service/report/infrastructure"
	"nexuspos/internal/service/report/infrastructure/rule"
	reportapi "nexuspos/internal/service/report/interfaces"
	saleapp "nexuspos/internal/service/sale/application"
	"nexuspos/internal/service/sale/application/chain"
	"nexuspos/internal/service/sale/domain/port"
	salestore "nexuspos/internal/service/sale/infrastructure"
	saleapi "nexuspos/internal/service/sale/interfaces"
	"nexuspos/internal/zookeeper"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

const serviceName = "pos-service"

// main 是组装根：创建并组装所有依赖，然后启动服务。
func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      serviceName,
		RegisterHandlers: registerHandlers,
	})
}

func registerHandlers(appCtx bootstrap.AppCtx) {
	cfg := appCtx.Config
	tracer := otel.Tracer(serviceName)
	loc := cfg.Store.Location()

	db, err := database.OpenMySQL(cfg.Infra.MySQL.DSN)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	if err := migrate(db); err != nil {
		zlog.Fatal().Err(err).Msg("failed to migrate schema")
	}
	appCtx.OnShutdown(func(ctx context.Context) {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	// 1. 目录与促销
	catalogSvc := catalogapp.NewCatalogService(catalogstore.NewGormProductRepository(db), tracer, cfg.Store.LowStockDefault)
	promotionSvc := promotionapp.NewPromotionService(promotionstore.NewGormPromotionRepository(db), tracer)

	// 2. 结账
	writer := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.SaleTopic)
	appCtx.OnShutdown(func(ctx context.Context) {
		if err := writer.Close(); err != nil {
			zlog.Error().Err(err).Msg("Error closing kafka writer")
		}
	})

	checkoutSvc := saleapp.NewCheckoutService(
		catalogSvc,
		promotionSvc,
		salestore.NewGormUnitOfWork(db),
		salestore.NewGormSaleRepository(db),
		tracer,
		chain.Settings{
			TaxRate:       decimal.NewFromFloat(cfg.Store.TaxRate),
			MaxRetries:    cfg.Checkout.MaxRetries,
			RetryBackoff:  cfg.Checkout.RetryBackoff,
			CommitTimeout: cfg.Checkout.CommitTimeout,
		},
	).
		WithPublisher(salestore.NewKafkaSalePublisher(writer)).
		WithAutoPromotion(cfg.Store.PromotionPolicy == "auto")
	if locker := newLocker(appCtx); locker != nil {
		checkoutSvc.WithLocker(locker)
	}

	// 3. 报表
	engine, err := rule.NewCELEngine(loc)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to create sale filter engine")
	}
	reportSvc := reportapp.NewReportService(reportstore.NewGormSalesReader(db), engine, tracer, loc).
		WithTopN(cfg.Report.TopProducts)

	// 4. 路由：管理接口走 gin，终端和报表接口直接挂在 ServeMux 上
	gin.SetMode(gin.ReleaseMode)
	admin := gin.New()
	admin.Use(gin.Recovery())
	api := admin.Group("/api")
	catalogapi.NewProductHandler(catalogSvc).RegisterRoutes(api)
	promotionapi.NewPromotionHandler(promotionSvc).RegisterRoutes(api)
	appCtx.Mux.Handle("/api/", admin)

	saleapi.NewCheckoutHandler(checkoutSvc).RegisterRoutes(appCtx.Mux)
	reportapi.NewReportHandler(reportSvc).RegisterRoutes(appCtx.Mux)

	zlog.Info().
		Str("serializer", cfg.Checkout.Serializer).
		Str("promotion_policy", cfg.Store.PromotionPolicy).
		Str("timezone", loc.String()).
		Msg("POS service wired")
}

func migrate(db *gorm.DB) error {
	models := append(catalogstore.Models(), &promotionstore.PromotionModel{})
	models = append(models, salestore.Models()...)
	return db.AutoMigrate(models...)
}

// newLocker 按 checkout.serializer 选择串行化方式，none 时返回 nil。
func newLocker(appCtx bootstrap.AppCtx) port.Locker {
	cfg := appCtx.Config
	switch cfg.Checkout.Serializer {
	case "local":
		return salestore.NewLocalLocker()
	case "zookeeper":
		conn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, cfg.Infra.Zookeeper.SessionTimeout)
		if err != nil {
			zlog.Fatal().Err(err).Msg("failed to connect to zookeeper")
		}
		appCtx.OnShutdown(func(ctx context.Context) { conn.Close() })
		return salestore.NewZookeeperLocker(conn)
	default:
		return nil
	}
}
