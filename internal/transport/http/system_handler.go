package httptransport

import (
	"time"

	"github.com/gin-gonic/gin"

	"blacklist/backend/internal/middleware"
)

// HealthMessage 健康检查的固定提示
const HealthMessage = "OK - this is a new deployment"

// SystemHandler 健康检查与诊断接口
type SystemHandler struct {
	now func() time.Time
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler() *SystemHandler {
	return &SystemHandler{now: time.Now}
}

type healthResponse struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

type testResponse struct {
	Message       string `json:"message"`
	Method        string `json:"method"`
	Authenticated bool   `json:"authenticated"`
	Subject       string `json:"subject,omitempty"`
}

// Health 返回当前时间戳，不需要认证
func (h *SystemHandler) Health(c *gin.Context) {
	OK(c, healthResponse{
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
		Message:   HealthMessage,
	})
}

// TestResponse 诊断接口，回显请求方法和认证状态
func (h *SystemHandler) TestResponse(c *gin.Context) {
	resp := testResponse{
		Message: "Test response",
		Method:  c.Request.Method,
	}
	if principal, ok := middleware.GetPrincipal(c); ok {
		resp.Authenticated = true
		resp.Subject = principal.Subject
	}
	OK(c, resp)
}
