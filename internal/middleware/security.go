package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blacklist/backend/internal/monitoring"
)

// MaxLoggedBodyChars 请求日志中记录的请求体最大字符数
const MaxLoggedBodyChars = 500

// SecurityHeaders 添加安全响应头
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		c.Next()
	}
}

// RequestLogger 请求日志中间件
//
// 处理前记录方法、路径、来源地址和 User-Agent，写操作额外记录请求体前 500 个字符；
// 处理后记录状态码和耗时（秒）。
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		pre := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.String("remote_addr", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if isMutating(method) && c.Request.Body != nil {
			pre = append(pre, zap.String("body", peekBody(c.Request)))
		}
		log.Info("request started", pre...)

		c.Next()

		status := c.Writer.Status()
		post := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Float64("duration", elapsedSeconds(start)),
		}
		if principal, ok := GetPrincipal(c); ok {
			post = append(post, zap.String("subject", principal.Subject))
		}

		switch {
		case status >= 500:
			log.Error("request completed", post...)
		case status >= 400:
			log.Warn("request completed", post...)
		default:
			log.Info("request completed", post...)
		}
	}
}

// elapsedSeconds 返回自 start 起的秒数，start 为零值时返回 0
func elapsedSeconds(start time.Time) float64 {
	if start.IsZero() {
		return 0
	}
	return time.Since(start).Seconds()
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// peekBody 读取足以覆盖 500 个字符的前缀，然后把它拼回请求体
func peekBody(r *http.Request) string {
	// UTF-8 每个字符最多 4 字节
	prefix, err := io.ReadAll(io.LimitReader(r.Body, MaxLoggedBodyChars*utf8.UTFMax))
	r.Body = &replayBody{
		Reader: io.MultiReader(bytes.NewReader(prefix), r.Body),
		Closer: r.Body,
	}
	if err != nil && len(prefix) == 0 {
		return ""
	}
	return truncateChars(prefix, MaxLoggedBodyChars)
}

func truncateChars(data []byte, limit int) string {
	count := 0
	for i := range string(data) {
		if count == limit {
			return string(data[:i])
		}
		count++
	}
	return string(data)
}

type replayBody struct {
	io.Reader
	io.Closer
}

// RecoveryHandler 恢复 panic 的中间件，metrics 可以为 nil
func RecoveryHandler(log *zap.Logger, metrics *monitoring.Metrics) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("panic recovered",
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.Any("error", err),
					zap.Stack("stack"),
				)
				if metrics != nil {
					metrics.RecordPanic()
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"message": "Internal server error",
				})
			}
		}()

		c.Next()
	}
}
