package model

import (
	"time"
)

// 好友请求状态，PENDING 为唯一非终态
const (
	FriendRequestPending  = "PENDING"
	FriendRequestAccepted = "ACCEPTED"
	FriendRequestRejected = "REJECTED"
)

// FriendRequest 好友请求。状态只允许一次性地从 PENDING 迁移到
// ACCEPTED 或 REJECTED。
type FriendRequest struct {
	ID         string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SenderID   string `gorm:"index;not null;type:varchar(64)" json:"sender_id"`
	ReceiverID string `gorm:"index;not null;type:varchar(64)" json:"receiver_id"`
	Status     string `gorm:"not null;default:PENDING;type:varchar(16)" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (FriendRequest) TableName() string {
	return "friend_requests"
}

// Resolved 是否已处于终态
func (r *FriendRequest) Resolved() bool {
	return r.Status != FriendRequestPending
}
