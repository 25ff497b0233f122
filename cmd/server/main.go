package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"blacklist/backend/internal/auth"
	jwtpkg "blacklist/backend/internal/auth/jwt"
	"blacklist/backend/internal/config"
	"blacklist/backend/internal/health"
	"blacklist/backend/internal/logger"
	"blacklist/backend/internal/monitoring"
	"blacklist/backend/internal/service"
	"blacklist/backend/internal/smtp"
	"blacklist/backend/internal/storage/factory"
	httptransport "blacklist/backend/internal/transport/http"
	"blacklist/backend/internal/websocket"
)

// main 启动黑名单 HTTP API，按配置同时启动 SMTP 策略网关。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.FromConfig(cfg.Log))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting blacklist server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.String("database_type", cfg.Database.Type),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.Bool("smtp", cfg.SMTP.Enabled),
	)

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化存储层
	store, err := factory.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("storage close error", zap.Error(err))
		}
	}()

	// 初始化监控系统
	metrics := monitoring.NewMetrics()
	if count, err := store.CountEntries(ctx); err == nil {
		metrics.SetEntriesTotal(count)
	} else {
		log.Warn("failed to count blacklist entries", zap.Error(err))
	}

	healthChecker := health.NewHealthChecker(store, log)

	// 初始化认证服务
	jwtManager := jwtpkg.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry)
	authService := auth.NewService(store, jwtManager, log)

	log.Info("JWT configuration",
		zap.String("issuer", cfg.JWT.Issuer),
		zap.Duration("expiry", cfg.JWT.Expiry),
	)

	// 创建配置中的 API 客户端
	if cfg.Auth.Username != "" {
		if err := authService.EnsureClient(ctx, cfg.Auth.Username, cfg.Auth.Password); err != nil {
			log.Fatal("failed to bootstrap API client", zap.String("username", cfg.Auth.Username), zap.Error(err))
		}
	} else {
		log.Warn("no bootstrap API client configured, use create-client to register one")
	}

	// 创建 WebSocket Hub，黑名单变更同时推送给监控指标和订阅者
	wsHub := websocket.NewHub(cfg.CORS.AllowedOrigins, metrics, log)
	blacklistService := service.NewBlacklistService(store, service.Publishers{metrics, wsHub}, log)

	// 创建 HTTP 服务器
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:           cfg,
		BlacklistService: blacklistService,
		AuthService:      authService,
		JWTManager:       jwtManager,
		Metrics:          metrics,
		HealthChecker:    healthChecker,
		WebSocketHub:     wsHub,
		Logger:           log,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 创建 SMTP 策略网关（可选）
	var smtpServer *gosmtp.Server
	if cfg.SMTP.Enabled {
		smtpBackend := smtp.NewBackend(blacklistService, smtp.NewConnectionLimiter(100, 20), metrics, log)
		smtpServer = smtp.NewServer(smtpBackend, cfg.SMTP.BindAddr, cfg.SMTP.Domain)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// SMTP 服务器 goroutine
	if smtpServer != nil {
		group.Go(func() error {
			log.Info("starting SMTP server",
				zap.String("address", cfg.SMTP.BindAddr),
				zap.String("domain", cfg.SMTP.Domain),
			)
			if err := smtpServer.ListenAndServe(); err != nil && !errors.Is(err, gosmtp.ErrServerClosed) {
				log.Error("SMTP server error", zap.Error(err))
				return err
			}
			return nil
		})
	}

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// 关闭 HTTP 服务器
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		// 关闭 SMTP 服务器
		if smtpServer != nil {
			if err := smtpServer.Shutdown(shutdownCtx); err != nil {
				log.Warn("SMTP server shutdown warning", zap.Error(err))
			}
		}

		log.Info("servers stopped")
		return nil
	})

	// 等待所有 goroutine 完成
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", zap.Error(err))
		return
	}

	log.Info("server exited cleanly")
}
