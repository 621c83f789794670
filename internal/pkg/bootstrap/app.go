// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/nacos"
	"orderflow/internal/pkg/tracing"
)

// AppCtx 传递给业务方的装配上下文
type AppCtx struct {
	Mux    *http.ServeMux
	Config *Config
	Nacos  *nacos.Client // 未配置注册中心时为 nil
}

// AppInfo 包含了启动一个服务所需的特定信息。
type AppInfo struct {
	ServiceName string
	// RegisterHandlers 允许服务注册自己的 HTTP 路由并完成依赖装配
	RegisterHandlers func(appCtx AppCtx) error
}

// StartService 封装了服务的通用启动和优雅关停逻辑：
// 配置装载、日志与追踪初始化、可选的 Nacos 注册、HTTP server 生命周期。
func StartService(info AppInfo) {
	logger.Init(info.ServiceName)
	baseLog := logger.Ctx(context.Background())

	cfg, err := LoadConfig(getEnv("CONFIG_PATH", ""))
	if err != nil {
		baseLog.Fatal().Err(err).Msg("failed to load config")
	}

	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		baseLog.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	// 可选的服务注册：未配置 Nacos 地址时跳过（本地联调场景）
	var namingClient *nacos.Client
	ip := ""
	if cfg.Infra.Nacos.ServerAddrs != "" {
		namingClient, err = nacos.NewClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			baseLog.Fatal().Err(err).Msg("failed to initialize nacos client")
		}
		ip, err = getOutboundIP()
		if err != nil {
			baseLog.Fatal().Err(err).Msg("failed to get outbound IP address")
		}
		if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, cfg.App.Port); err != nil {
			baseLog.Fatal().Err(err).Msg("failed to register service with nacos")
		}
		baseLog.Info().Msgf("Service '%s' registered to Nacos (%s:%d)", info.ServiceName, ip, cfg.App.Port)
	}

	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		if err := info.RegisterHandlers(AppCtx{Mux: mux, Config: cfg, Nacos: namingClient}); err != nil {
			baseLog.Fatal().Err(err).Msg("failed to assemble service dependencies")
		}
	}
	server := &http.Server{Addr: ":" + strconv.Itoa(cfg.App.Port), Handler: mux}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		baseLog.Info().Msgf("%s listening on %s", info.ServiceName, server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		baseLog.Info().Msgf("Shutting down service %s...", info.ServiceName)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// 关停顺序与启动相反：先摘流量，再刷 trace，最后关 server
		if namingClient != nil {
			if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, cfg.App.Port); err != nil {
				baseLog.Warn().Err(err).Msg("error deregistering from nacos")
			}
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			baseLog.Warn().Err(err).Msg("error shutting down tracer provider")
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		baseLog.Error().Err(err).Msg("service exited with error")
		os.Exit(1)
	}
	baseLog.Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
}

// getOutboundIP 获取本机对外 IP，用于注册中心上报
func getOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected local address type %T", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}
