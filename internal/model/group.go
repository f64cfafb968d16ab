package model

import "time"

type Group struct {
	ID        string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name      string `gorm:"not null;type:varchar(255)" json:"name"`
	OwnerID   string `gorm:"not null;type:varchar(64)" json:"owner_id"`
	AvatarURL string `json:"avatar_url"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Group) TableName() string {
	return "groups"
}

type GroupMember struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID string `gorm:"uniqueIndex:idx_group_member;not null;type:varchar(64)" json:"group_id"`
	UserID  string `gorm:"uniqueIndex:idx_group_member;not null;type:varchar(64)" json:"user_id"`

	JoinedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"joined_at"`
}

func (GroupMember) TableName() string {
	return "group_members"
}

// MessageSession 会话摘要，按需计算，不落库。
type MessageSession struct {
	PartnerID   string    `json:"partner_id"`
	PartnerName string    `json:"partner_name"`
	AvatarURL   string    `json:"avatar_url"`
	Type        string    `json:"type"` // private / group
	LastID      int64     `json:"last_message_id"`
	LastContent string    `json:"last_content"`
	LastMsgType string    `json:"last_msg_type"`
	LastTime    time.Time `json:"last_time"`
	UnreadCount int64     `json:"unread_count"`
}
