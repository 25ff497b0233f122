package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blacklist/backend/internal/auth/jwt"
	"blacklist/backend/internal/domain"
	"blacklist/backend/internal/monitoring"
)

// PrincipalKey 上下文中保存已认证身份的键
const PrincipalKey = "principal"

// 令牌校验失败时的固定响应文本
const (
	MsgTokenRequired = "Token is required"
	MsgInvalidToken  = "Invalid token"
	MsgTokenExpired  = "Token has expired"
)

// JWTAuth JWT认证中间件
type JWTAuth struct {
	jwtManager *jwt.Manager
	metrics    *monitoring.Metrics
	log        *zap.Logger
}

// NewJWTAuth 创建JWT认证中间件，metrics 可以为 nil
func NewJWTAuth(jwtManager *jwt.Manager, metrics *monitoring.Metrics, log *zap.Logger) *JWTAuth {
	if log == nil {
		log = zap.NewNop()
	}
	return &JWTAuth{
		jwtManager: jwtManager,
		metrics:    metrics,
		log:        log,
	}
}

// RequireAuth 要求 Authorization: Bearer 令牌，所有失败均返回 403
func (ja *JWTAuth) RequireAuth() gin.HandlerFunc {
	return ja.require(false)
}

// RequireStreamAuth 同 RequireAuth，另外接受 token 查询参数（浏览器 WebSocket 无法设置请求头）
func (ja *JWTAuth) RequireStreamAuth() gin.HandlerFunc {
	return ja.require(true)
}

func (ja *JWTAuth) require(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" && allowQuery {
			token = strings.TrimSpace(c.Query("token"))
		}
		if token == "" {
			ja.reject(c, "missing", MsgTokenRequired, nil)
			return
		}

		claims, err := ja.jwtManager.Validate(token)
		if err != nil {
			if errors.Is(err, jwt.ErrExpiredToken) {
				ja.reject(c, "expired", MsgTokenExpired, err)
			} else {
				ja.reject(c, "invalid", MsgInvalidToken, err)
			}
			return
		}

		c.Set(PrincipalKey, principalFromClaims(claims))
		c.Next()
	}
}

// OptionalAuth 可选的JWT认证，令牌无效时按匿名请求处理
func (ja *JWTAuth) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}

		if claims, err := ja.jwtManager.Validate(token); err == nil {
			c.Set(PrincipalKey, principalFromClaims(claims))
		}
		c.Next()
	}
}

func (ja *JWTAuth) reject(c *gin.Context, reason, message string, err error) {
	fields := []zap.Field{
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
		zap.String("ip", c.ClientIP()),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	ja.log.Warn("request rejected by token check", fields...)

	if ja.metrics != nil {
		ja.metrics.RecordAuthFailure(reason)
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": message})
}

// GetPrincipal 返回当前请求的已认证身份
func GetPrincipal(c *gin.Context) (*domain.Principal, bool) {
	value, ok := c.Get(PrincipalKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*domain.Principal)
	return principal, ok
}

// extractBearer 从 Authorization 头提取令牌，其他认证方案视为未提供
func extractBearer(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func principalFromClaims(claims *jwt.Claims) *domain.Principal {
	return &domain.Principal{
		Subject:   claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAtTime(),
	}
}
