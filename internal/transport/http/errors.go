package httptransport

import (
	"errors"
	"net/http"

	"blacklist/backend/internal/auth"
	"blacklist/backend/internal/domain"
	"blacklist/backend/internal/storage"
)

// 请求层自身的错误
var (
	errInvalidBody         = errors.New("invalid request body")
	errCredentialsRequired = errors.New("username and password are required")
)

// 通用错误消息
const (
	MsgInvalidRequest      = "Invalid request body"
	MsgCredentialsRequired = "Username and password are required"
	MsgInvalidCredentials  = "Invalid credentials"
	MsgClientInactive      = "Client is inactive"
	MsgEmailRequired       = "Email is required"
	MsgInvalidEmail        = "Invalid email address"
	MsgReasonTooLong       = "Reason must be at most 500 characters"
	MsgEntryExists         = "Email already blacklisted"
	MsgEntryNotFound       = "Email not found in blacklist"
	MsgEntryDeleted        = "Email removed from blacklist"
	MsgBodyTooLarge        = "Request body too large"
	MsgInternalError       = "Internal server error"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

// errorTable 业务错误到 HTTP 响应的映射，按顺序匹配
var errorTable = []errorMapping{
	{errInvalidBody, http.StatusBadRequest, MsgInvalidRequest},
	{errCredentialsRequired, http.StatusBadRequest, MsgCredentialsRequired},

	// 校验错误
	{domain.ErrEmailRequired, http.StatusBadRequest, MsgEmailRequired},
	{domain.ErrInvalidEmail, http.StatusBadRequest, MsgInvalidEmail},
	{domain.ErrEmailTooLong, http.StatusBadRequest, MsgInvalidEmail},
	{domain.ErrLocalPartTooLong, http.StatusBadRequest, MsgInvalidEmail},
	{domain.ErrDomainTooLong, http.StatusBadRequest, MsgInvalidEmail},
	{domain.ErrInvalidDomain, http.StatusBadRequest, MsgInvalidEmail},
	{domain.ErrReasonTooLong, http.StatusBadRequest, MsgReasonTooLong},

	// 存储错误
	{storage.ErrEntryExists, http.StatusConflict, MsgEntryExists},
	{storage.ErrEntryNotFound, http.StatusNotFound, MsgEntryNotFound},

	// 认证错误
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, MsgInvalidCredentials},
	{auth.ErrClientInactive, http.StatusForbidden, MsgClientInactive},
}

// ResolveError 返回错误对应的状态码和消息，未知错误一律 500
func ResolveError(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.message
		}
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge, MsgBodyTooLarge
	}

	return http.StatusInternalServerError, MsgInternalError
}
