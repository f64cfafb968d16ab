package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/harbor-im/harbor/internal/model"
	"github.com/harbor-im/harbor/internal/repository"
)

// ReadStatusService 维护 (message, reader) 已读记录并计算未读数。
type ReadStatusService struct {
	messages repository.IMessageRepository
	logger   *zap.Logger
}

func NewReadStatusService(messages repository.IMessageRepository, logger *zap.Logger) *ReadStatusService {
	return &ReadStatusService{messages: messages, logger: logger}
}

// MarkRead 把会话里所有他人发出的、尚无已读记录的消息逐条补上记录。
// 幂等：先做存在性检查，(message_id, user_id) 唯一索引兜底并发写入。
func (s *ReadStatusService) MarkRead(ctx context.Context, userID, partnerID, conversationType string) error {
	unread, err := s.messages.FindUnread(ctx, userID, partnerID, conversationType)
	if err != nil {
		return fmt.Errorf("failed to find unread messages: %w", err)
	}

	for _, msg := range unread {
		exists, err := s.messages.HasReadStatus(ctx, msg.ID, userID)
		if err != nil {
			return fmt.Errorf("failed to check read status: %w", err)
		}
		if exists {
			continue
		}
		if err := s.messages.CreateReadStatus(ctx, &model.MessageReadStatus{
			MessageID: msg.ID,
			UserID:    userID,
		}); err != nil {
			// 可能与并发 markRead 撞上唯一索引；该条已读，继续
			s.logger.Debug("read status insert skipped",
				zap.Int64("message_id", msg.ID),
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
	return nil
}

// UnreadCount 统计会话内对方发出、对 userID 可见且无已读记录的消息数。
func (s *ReadStatusService) UnreadCount(ctx context.Context, userID, partnerID, conversationType string) (int64, error) {
	return s.messages.UnreadCount(ctx, userID, partnerID, conversationType)
}

// Hide 对 userID 单边隐藏一条消息（软删除），另一方视图不受影响。
func (s *ReadStatusService) Hide(ctx context.Context, userID string, messageID int64) error {
	if _, err := s.messages.FindByID(ctx, messageID); err != nil {
		return err
	}
	return s.messages.Hide(ctx, messageID, userID)
}
