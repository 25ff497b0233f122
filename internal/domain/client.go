package domain

import "time"

// APIClient 可以换取访问令牌的 API 客户端凭证
type APIClient struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username     string    `json:"username" gorm:"uniqueIndex;type:varchar(64);not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"` // 不返回给调用方
	IsActive     bool      `json:"isActive" gorm:"not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName 指定 GORM 表名
func (APIClient) TableName() string {
	return "api_clients"
}

// Principal 已通过令牌认证的调用方身份
type Principal struct {
	Subject   string    `json:"subject"`
	TokenID   string    `json:"tokenId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
