// cmd/event-gateway/main.go
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

	"dispatch/internal/gateway"
	"dispatch/internal/pkg/bootstrap"
	"dispatch/internal/pkg/httpx"
	"dispatch/internal/pkg/logger"
	"dispatch/internal/pkg/mq"
	"dispatch/internal/pkg/redis"
	identityapp "dispatch/internal/service/identity/application"
	identityinfra "dispatch/internal/service/identity/infrastructure"
)

const (
	serviceName   = "event-gateway"
	port          = 8081
	consumerGroup = "event-gateway"
)

// main 是事件网关进程的组装根：Kafka 消费 -> Hub 扇出 -> WebSocket 推送。
func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to mysql")
	}

	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addr, cfg.Infra.Redis.Password, cfg.Infra.Redis.DB)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// 网关只校验令牌，不提供账号管理接口，但复用同一套身份服务。
	identitySvc := identityapp.NewIdentityApplicationService(
		identityinfra.NewGormUserRepository(db),
		identityinfra.NewRedisTokenStore(redisClient),
		identityinfra.NewGormCustomerDirectory(db),
		time.Duration(cfg.App.TokenTTLMinutes)*time.Minute,
		otel.Tracer(serviceName),
	)

	hub := gateway.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	reader := mq.NewReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OrderEventsTopic, consumerGroup)
	consumer := gateway.NewEventConsumer(reader, hub)
	consumer.Start(context.Background())

	wsHandler := gateway.NewWSHandler(hub, identitySvc)

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

			wsHandler.RegisterRoutes(engine.Group(""))
			return engine
		},
		OnShutdown: []func(ctx context.Context){
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
			func(ctx context.Context) { stopHub() },
			func(ctx context.Context) { consumer.Stop() },
		},
	})
}
