package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessageResponse 所有错误及无数据响应的统一结构
type MessageResponse struct {
	Message string `json:"message"`
}

// OK 成功响应（200）
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created 创建成功响应（201）
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Message 仅包含提示信息的响应
func Message(c *gin.Context, status int, message string) {
	c.JSON(status, MessageResponse{Message: message})
}

// Fail 通过错误表解析错误并响应，5xx 会记录日志
func Fail(c *gin.Context, log *zap.Logger, err error) {
	status, message := ResolveError(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, MessageResponse{Message: message})
}
