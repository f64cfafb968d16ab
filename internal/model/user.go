package model

import (
	"time"
)

// 用户在线状态，userStatus 推送沿用同一套取值
const (
	StatusOffline = 0
	StatusOnline  = 1
	StatusBusy    = 2
)

// User 用户模型
type User struct {
	ID           string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserName     string `gorm:"column:username;uniqueIndex;not null;type:varchar(255)" json:"username"`
	PasswordHash string `gorm:"not null;type:varchar(255)" json:"-"`
	Nickname     string `gorm:"type:varchar(255)" json:"nickname"`
	AvatarURL    string `json:"avatar_url"`
	Status       int    `gorm:"default:0" json:"status"` // 0 offline / 1 online / 2 busy

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Contact 联系人关系。接受好友请求后成对写入（A->B 与 B->A 各一行），
// 因此查询任一方向都能命中。
type Contact struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string `gorm:"uniqueIndex:idx_contact_pair;not null;type:varchar(64)" json:"user_id"`
	ContactID string `gorm:"uniqueIndex:idx_contact_pair;not null;type:varchar(64)" json:"contact_id"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Contact) TableName() string {
	return "contacts"
}
