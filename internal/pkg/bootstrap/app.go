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

	"golang.org/x/sync/errgroup"

	"dispatch/internal/pkg/logger"
	"dispatch/internal/pkg/nacos"
	"dispatch/internal/pkg/tracing"
)

// AppCtx 在 BuildHandler 回调中传递给服务，携带通用的基础设施句柄。
type AppCtx struct {
	Nacos *nacos.Client
}

// AppInfo 包含了启动一个服务进程所需的所有特定信息。
type AppInfo struct {
	ServiceName string
	Port        int
	// BuildHandler 由每个服务提供，负责组装自己的 HTTP 入口（gin engine 等）。
	BuildHandler func(appCtx AppCtx) http.Handler
	// OnShutdown 在关停流程中按注册顺序的逆序执行（后进先出）。
	OnShutdown []func(ctx context.Context)
}

// StartService 封装了所有服务进程的通用启动和优雅关停逻辑：
// 配置加载 -> 日志 -> Tracer -> Nacos 注册 -> HTTP Server -> 信号等待 -> LIFO 清理。
func StartService(info AppInfo) {
	Init()
	logger.Init(info.ServiceName)
	cfg := GetCurrentConfig()

	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	namingClient, err := nacos.NewClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize nacos client")
	}

	ip, err := getOutboundIP()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to get outbound IP address")
	}

	if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to register service with nacos")
	}

	var handler http.Handler = http.NewServeMux()
	if info.BuildHandler != nil {
		handler = info.BuildHandler(AppCtx{Nacos: namingClient})
	}
	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: handler}

	g, gCtx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		logger.Logger.Info().Int("port", info.Port).Msgf("%s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			logger.Logger.Info().Str("signal", sig.String()).Msgf("shutting down service %s", info.ServiceName)
		case <-gCtx.Done():
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return shutdown(ctx,
			func() error { return namingClient.DeregisterServiceInstance(info.ServiceName, ip, info.Port) },
			server.Shutdown,
			info.OnShutdown,
			tp.Shutdown,
		)
	})

	if err := g.Wait(); err != nil {
		logger.Logger.Fatal().Err(err).Msgf("service %s exited with error", info.ServiceName)
	}
	logger.Logger.Info().Msgf("service %s gracefully shut down", info.ServiceName)
}

// shutdown 执行关停序列：先从注册中心摘除停止新流量，再排空在途 HTTP 请求，
// 之后才按后进先出关闭各类后端句柄，最后停掉 tracer。
// 顺序不能颠倒：钩子会关闭数据库和缓存连接，必须等请求排空后才能执行。
func shutdown(ctx context.Context, deregister func() error, drain func(context.Context) error, hooks []func(context.Context), stopTracer func(context.Context) error) error {
	if err := deregister(); err != nil {
		logger.Logger.Error().Err(err).Msg("error deregistering from nacos")
	}
	drainErr := drain(ctx)
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i](ctx)
	}
	if err := stopTracer(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("error shutting down tracer provider")
	}
	return drainErr
}

// getOutboundIP 通过向外拨号（不实际建立连接）获取本机对外 IP，用于服务注册。
func getOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}
