package domain

import "time"

// BlacklistEntry 表示一个被拉黑的邮箱地址
//
// 条目只会被创建和删除，不支持原地更新。
type BlacklistEntry struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(254);not null"`
	Reason    string    `json:"reason,omitempty" gorm:"type:varchar(500)"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

// TableName 指定 GORM 表名
func (BlacklistEntry) TableName() string {
	return "blacklist_entries"
}

// EventType 黑名单变更事件类型
type EventType string

const (
	EventEntryCreated EventType = "entry_created"
	EventEntryDeleted EventType = "entry_deleted"
)

// BlacklistEvent 黑名单变更事件，推送给 WebSocket 订阅者
type BlacklistEvent struct {
	Type      EventType       `json:"type"`
	Email     string          `json:"email"`
	Entry     *BlacklistEntry `json:"entry,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
