// cmd/api-server/main.go
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"dispatch/internal/pkg/bootstrap"
	"dispatch/internal/pkg/httpx"
	"dispatch/internal/pkg/logger"
	"dispatch/internal/pkg/mq"
	"dispatch/internal/pkg/redis"

	analyticsapp "dispatch/internal/service/analytics/application"
	analyticsinfra "dispatch/internal/service/analytics/infrastructure"
	analyticshttp "dispatch/internal/service/analytics/interfaces"
	customerapp "dispatch/internal/service/customer/application"
	customerinfra "dispatch/internal/service/customer/infrastructure"
	customerhttp "dispatch/internal/service/customer/interfaces"
	identityapp "dispatch/internal/service/identity/application"
	identityinfra "dispatch/internal/service/identity/infrastructure"
	identityhttp "dispatch/internal/service/identity/interfaces"
	orderapp "dispatch/internal/service/order/application"
	orderinfra "dispatch/internal/service/order/infrastructure"
	orderadapter "dispatch/internal/service/order/infrastructure/adapter"
	orderhttp "dispatch/internal/service/order/interfaces"
	storeapp "dispatch/internal/service/store/application"
	storeinfra "dispatch/internal/service/store/infrastructure"
	storehttp "dispatch/internal/service/store/interfaces"
)

const (
	serviceName = "api-server"
	port        = 8080
)

// main 是 API 进程的组装根：创建全部依赖并交给 bootstrap 启动。
func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	// TranslateError 让各方言的唯一键冲突统一映射为 gorm.ErrDuplicatedKey
	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	if err := db.AutoMigrate(
		&identityinfra.UserModel{},
		&storeinfra.StoreModel{},
		&customerinfra.CustomerModel{},
		&customerinfra.DueClearanceModel{},
		&orderinfra.OrderModel{},
		&orderinfra.OrderItemModel{},
		&orderinfra.DeliveryModel{},
		&orderinfra.ReturnModel{},
	); err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addr, cfg.Infra.Redis.Password, cfg.Infra.Redis.DB)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	kafkaWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OrderEventsTopic)

	tracer := otel.Tracer(serviceName)

	// identity
	identitySvc := identityapp.NewIdentityApplicationService(
		identityinfra.NewGormUserRepository(db),
		identityinfra.NewRedisTokenStore(redisClient),
		identityinfra.NewGormCustomerDirectory(db),
		time.Duration(cfg.App.TokenTTLMinutes)*time.Minute,
		tracer,
	)
	identityHandler := identityhttp.NewIdentityHandler(identitySvc)
	auth := identityHandler.AuthRequired()

	// store
	storeSvc := storeapp.NewStoreApplicationService(
		storeinfra.NewGormStoreRepository(db),
		storeinfra.NewGormOrderCounter(db),
		tracer,
	)

	// customer
	cacheInvalidator := orderadapter.NewReportCacheInvalidator(redisClient)
	customerSvc := customerapp.NewCustomerApplicationService(
		customerinfra.NewGormUnitOfWork(db),
		customerinfra.NewGormCustomerRepository(db),
		customerinfra.NewGormClearanceRepository(db),
		cacheInvalidator,
		tracer,
	)

	// order
	orderSvc := orderapp.NewOrderApplicationService(
		orderinfra.NewGormUnitOfWork(db),
		orderinfra.NewGormOrderRepository(db),
		orderinfra.NewGormDeliveryRepository(db),
		orderinfra.NewGormReturnRepository(db),
		orderinfra.NewGormCustomerBalances(db),
		orderinfra.NewGormStaffDirectory(db),
		orderinfra.NewGormStoreDirectory(db),
		cacheInvalidator,
		orderadapter.NewKafkaEventPublisher(kafkaWriter),
		tracer,
	)

	// analytics
	analyticsSvc := analyticsapp.NewAnalyticsApplicationService(
		analyticsinfra.NewGormReportQueries(db),
		redisClient,
		tracer,
	)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        port,
		BuildHandler: func(appCtx bootstrap.AppCtx) http.Handler {
			if cfg.App.Env == "prod" {
				gin.SetMode(gin.ReleaseMode)
			}
			engine := gin.New()
			engine.Use(gin.Recovery(), httpx.Tracing(serviceName), httpx.AccessLog())

			engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
			engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

			api := engine.Group("/api/v1")
			identityHandler.RegisterRoutes(api)
			storehttp.NewStoreHandler(storeSvc).RegisterRoutes(api, auth)
			customerhttp.NewCustomerHandler(customerSvc).RegisterRoutes(api, auth)
			orderhttp.NewOrderHandler(orderSvc).RegisterRoutes(api, auth)
			analyticshttp.NewAnalyticsHandler(analyticsSvc).RegisterRoutes(api, auth)
			return engine
		},
		OnShutdown: []func(ctx context.Context){
			func(ctx context.Context) {
				if err := kafkaWriter.Close(); err != nil {
					logger.Logger.Error().Err(err).Msg("error closing kafka writer")
				}
			},
			func(ctx context.Context) {
				if err := redisClient.Close(); err != nil {
					logger.Logger.Error().Err(err).Msg("error closing redis client")
				}
			},
			func(ctx context.Context) {
				if sqlDB, err := db.DB(); err == nil {
					sqlDB.Close()
				}
			},
		},
	})
}
