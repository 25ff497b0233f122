package httptransport

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blacklist/backend/internal/auth"
	"blacklist/backend/internal/monitoring"
)

// AuthHandler 处理令牌签发请求
type AuthHandler struct {
	authService *auth.Service       // 认证业务服务
	metrics     *monitoring.Metrics // 可以为 nil
	log         *zap.Logger         // 结构化日志记录器
}

// NewAuthHandler 创建新的认证处理器实例
func NewAuthHandler(authService *auth.Service, metrics *monitoring.Metrics, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		authService: authService,
		metrics:     metrics,
		log:         log,
	}
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// IssueToken 用客户端凭证换取访问令牌
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, h.log, errInvalidBody)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		Fail(c, h.log, errCredentialsRequired)
		return
	}

	token, err := h.authService.IssueToken(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if h.metrics != nil && (errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrClientInactive)) {
			h.metrics.RecordAuthFailure("credentials")
		}
		h.log.Warn("token request rejected",
			zap.String("username", req.Username),
			zap.String("ip", c.ClientIP()),
			zap.Error(err))
		Fail(c, h.log, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordTokenIssued()
	}
	OK(c, token)
}
