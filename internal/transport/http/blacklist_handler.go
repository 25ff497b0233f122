package httptransport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blacklist/backend/internal/domain"
	"blacklist/backend/internal/service"
)

// BlacklistHandler 处理黑名单资源的 HTTP 请求
type BlacklistHandler struct {
	blacklist *service.BlacklistService
	log       *zap.Logger
}

// NewBlacklistHandler 创建黑名单处理器
func NewBlacklistHandler(blacklist *service.BlacklistService, log *zap.Logger) *BlacklistHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BlacklistHandler{blacklist: blacklist, log: log}
}

type createEntryRequest struct {
	Email  *string `json:"email"`
	Reason string  `json:"reason"`
}

// decodeCreateRequest 请求体必须恰好是一个 JSON 对象，空请求体视为缺少 email
func decodeCreateRequest(body io.Reader) (*createEntryRequest, error) {
	dec := json.NewDecoder(body)

	var req createEntryRequest
	if err := dec.Decode(&req); err != nil {
		return nil, classifyDecodeError(err, domain.ErrEmailRequired)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, classifyDecodeError(err, errInvalidBody)
	}
	return &req, nil
}

func classifyDecodeError(err, onEOF error) error {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return err
	case errors.Is(err, io.EOF):
		return onEOF
	default:
		return errInvalidBody
	}
}

// List 返回全部条目
func (h *BlacklistHandler) List(c *gin.Context) {
	entries, err := h.blacklist.List(c.Request.Context())
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, entries)
}

// Create 新增条目，缺失 email 字段返回 400
func (h *BlacklistHandler) Create(c *gin.Context) {
	req, err := decodeCreateRequest(c.Request.Body)
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	if req.Email == nil {
		Fail(c, h.log, domain.ErrEmailRequired)
		return
	}

	entry, err := h.blacklist.Create(c.Request.Context(), service.CreateEntryInput{
		Email:  *req.Email,
		Reason: req.Reason,
	})
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	Created(c, entry)
}

// Get 按邮箱查询条目
func (h *BlacklistHandler) Get(c *gin.Context) {
	entry, err := h.blacklist.Get(c.Request.Context(), c.Param("email"))
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, entry)
}

// Delete 按邮箱删除条目
func (h *BlacklistHandler) Delete(c *gin.Context) {
	if err := h.blacklist.Delete(c.Request.Context(), c.Param("email")); err != nil {
		Fail(c, h.log, err)
		return
	}
	Message(c, http.StatusOK, MsgEntryDeleted)
}
