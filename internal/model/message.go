package model

import (
	"errors"
	"time"
)

// 消息类型
const (
	MsgTypeText  = "text"
	MsgTypeFile  = "file"
	MsgTypeImage = "image"
	MsgTypeVideo = "video"
	MsgTypeAudio = "audio"
)

// 会话类型：私聊或群聊
const (
	ConversationPrivate = "private"
	ConversationGroup   = "group"
)

var ErrMessageTarget = errors.New("message must have exactly one of receiver_id and group_id")

// Message 消息模型。ReceiverID 与 GroupID 二者有且仅有其一非空。
type Message struct {
	ID       int64  `gorm:"primaryKey" json:"id"` // snowflake
	SenderID string `gorm:"index;not null;type:varchar(64)" json:"sender_id"`

	ReceiverID string `gorm:"index;type:varchar(64)" json:"receiver_id,omitempty"`
	GroupID    string `gorm:"index;type:varchar(64)" json:"group_id,omitempty"`

	Content string `gorm:"type:text;not null" json:"content"`
	MsgType string `gorm:"not null;default:text;type:varchar(16)" json:"msg_type"`
	FileURL string `json:"file_url,omitempty"`

	CreatedAt time.Time `gorm:"index;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// Validate 校验接收方不变量
func (m *Message) Validate() error {
	if (m.ReceiverID == "") == (m.GroupID == "") {
		return ErrMessageTarget
	}
	return nil
}

// IsGroup 是否为群消息
func (m *Message) IsGroup() bool {
	return m.GroupID != ""
}

// MessageReadStatus 已读记录，(message_id, user_id) 每对至多一行。
// 存在即已读；只追加，不更新。
type MessageReadStatus struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID int64     `gorm:"uniqueIndex:idx_read_once;not null" json:"message_id"`
	UserID    string    `gorm:"uniqueIndex:idx_read_once;not null;type:varchar(64)" json:"user_id"`
	ReadAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"read_at"`
}

func (MessageReadStatus) TableName() string {
	return "message_read_statuses"
}

// MessageVisibility 单边软删除索引表：存在一行表示该消息对该用户隐藏。
// 消息本体不动，另一方视图不受影响。
type MessageVisibility struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID int64     `gorm:"uniqueIndex:idx_hidden_once;not null" json:"message_id"`
	UserID    string    `gorm:"uniqueIndex:idx_hidden_once;not null;type:varchar(64)" json:"user_id"`
	HiddenAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"hidden_at"`
}

func (MessageVisibility) TableName() string {
	return "message_visibilities"
}
