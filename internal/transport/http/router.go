package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blacklist/backend/internal/auth"
	jwtpkg "blacklist/backend/internal/auth/jwt"
	"blacklist/backend/internal/config"
	"blacklist/backend/internal/health"
	"blacklist/backend/internal/middleware"
	"blacklist/backend/internal/monitoring"
	"blacklist/backend/internal/service"
	"blacklist/backend/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config           *config.Config
	BlacklistService *service.BlacklistService
	AuthService      *auth.Service
	JWTManager       *jwtpkg.Manager
	Metrics          *monitoring.Metrics   // 可选
	HealthChecker    *health.HealthChecker // 可选
	WebSocketHub     *websocket.Hub        // 可选
	Logger           *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	// 日志放在最外层，被拒绝和 panic 的请求同样会记录
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.RecoveryHandler(log, deps.Metrics))
	router.Use(middleware.SecurityHeaders())
	if deps.Metrics != nil {
		router.Use(middleware.NewMonitoringMiddleware(deps.Metrics).HTTPMetrics())
	}
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	// CORS 配置
	origins := deps.Config.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsConfig := gincors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	systemHandler := NewSystemHandler()
	authHandler := NewAuthHandler(deps.AuthService, deps.Metrics, log)
	blacklistHandler := NewBlacklistHandler(deps.BlacklistService, log)

	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, deps.Metrics, log)

	router.NoRoute(func(c *gin.Context) {
		Message(c, http.StatusNotFound, "Not found")
	})

	// ========== System Routes（无需认证） ==========
	router.GET("/health", systemHandler.Health)
	if deps.HealthChecker != nil {
		router.GET("/health/live", gin.WrapH(deps.HealthChecker.LiveHandler()))
		router.GET("/health/ready", gin.WrapH(deps.HealthChecker.ReadyHandler()))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}
	router.Any("/test-res", jwtAuth.OptionalAuth(), systemHandler.TestResponse)

	// ========== Auth Routes ==========
	tokenHandlers := []gin.HandlerFunc{}
	if deps.Config.Auth.RateLimit > 0 {
		limiter := middleware.NewIPRateLimiter(deps.Config.Auth.RateLimit, deps.Config.Auth.RateBurst)
		tokenHandlers = append(tokenHandlers, middleware.RateLimitByIP(limiter, "auth_token", deps.Metrics))
	}
	tokenHandlers = append(tokenHandlers, authHandler.IssueToken)
	router.POST("/auth/token", tokenHandlers...)

	// ========== Blacklist Routes ==========
	blacklistRoutes := router.Group("/blacklists")
	blacklistRoutes.Use(jwtAuth.RequireAuth())
	{
		blacklistRoutes.GET("", blacklistHandler.List)
		blacklistRoutes.POST("", blacklistHandler.Create)
		blacklistRoutes.GET("/:email", blacklistHandler.Get)
		blacklistRoutes.DELETE("/:email", blacklistHandler.Delete)
	}

	// ========== WebSocket Routes ==========
	if deps.WebSocketHub != nil {
		router.GET("/ws/blacklists", jwtAuth.RequireStreamAuth(), websocket.HandleWebSocket(deps.WebSocketHub))
	}

	return router
}
