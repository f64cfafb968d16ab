package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/harbor-im/harbor/internal/events"
	"github.com/harbor-im/harbor/internal/gateway"
	"github.com/harbor-im/harbor/internal/model"
	"github.com/harbor-im/harbor/internal/protocol"
	"github.com/harbor-im/harbor/internal/repository"
	"github.com/harbor-im/harbor/utils/snowflake"
)

var (
	ErrNotGroupMember = errors.New("sender is not a member of the group")
	ErrEmptyContent   = errors.New("message content is empty")
)

// RouterService 解析入站信封并按类型分发。聊天消息先同步落库再投递，
// 因此任何被推送出去的消息必然已经持久化。
type RouterService struct {
	registry *gateway.Registry
	messages repository.IMessageRepository
	groups   repository.IGroupRepository
	friends  *FriendService
	groupSvc *GroupService
	ids      *snowflake.Generator
	events   events.Publisher
	logger   *zap.Logger
}

func NewRouterService(
	registry *gateway.Registry,
	messages repository.IMessageRepository,
	groups repository.IGroupRepository,
	friends *FriendService,
	groupSvc *GroupService,
	ids *snowflake.Generator,
	publisher events.Publisher,
	logger *zap.Logger,
) *RouterService {
	return &RouterService{
		registry: registry,
		messages: messages,
		groups:   groups,
		friends:  friends,
		groupSvc: groupSvc,
		ids:      ids,
		events:   publisher,
		logger:   logger,
	}
}

// HandleFrame 处理一帧入站数据。解析失败或业务出错只回 error 信封给
// 发起方，连接保持打开；对其他目标的投递失败不回传给发起方。
func (s *RouterService) HandleFrame(ctx context.Context, senderID string, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		s.logger.Warn("bad envelope", zap.String("sender_id", senderID), zap.Error(err))
		s.registry.SendTo(senderID, protocol.NewErrorPush(err.Error()))
		return
	}

	switch v := env.(type) {
	case protocol.Chat:
		// 连接归属即身份，不信任信封里的 senderId
		v.SenderID = senderID
		if err := s.RouteChat(ctx, v); err != nil {
			s.registry.SendTo(senderID, protocol.NewErrorPush(err.Error()))
		}
	case protocol.FriendRequest:
		if _, err := s.friends.SendRequest(ctx, senderID, v.ReceiverID); err != nil {
			s.registry.SendTo(senderID, protocol.NewErrorPush(err.Error()))
		}
	case protocol.HandleFriendRequest:
		if _, err := s.friends.HandleRequest(ctx, v.RequestID, v.Accept); err != nil {
			s.registry.SendTo(senderID, protocol.NewErrorPush(err.Error()))
		}
	case protocol.CreateGroup:
		if _, err := s.groupSvc.CreateGroup(ctx, senderID, v.Name, v.MemberIDs); err != nil {
			s.registry.SendTo(senderID, protocol.NewErrorPush(err.Error()))
		}
	}
}

// RouteChat 持久化并投递一条聊天消息。
func (s *RouterService) RouteChat(ctx context.Context, env protocol.Chat) error {
	if env.Content == "" && env.FileURL == "" {
		return ErrEmptyContent
	}
	msgType := env.MsgType
	if msgType == "" {
		msgType = model.MsgTypeText
	}

	id, err := s.ids.Next()
	if err != nil {
		return fmt.Errorf("failed to allocate message id: %w", err)
	}

	message := &model.Message{
		ID:         id,
		SenderID:   env.SenderID,
		ReceiverID: env.ReceiverID,
		GroupID:    env.GroupID,
		Content:    env.Content,
		MsgType:    msgType,
		FileURL:    env.FileURL,
	}
	if err := message.Validate(); err != nil {
		return err
	}

	if message.IsGroup() {
		member, err := s.groups.IsMember(ctx, message.GroupID, message.SenderID)
		if err != nil {
			return fmt.Errorf("failed to check group membership: %w", err)
		}
		if !member {
			return ErrNotGroupMember
		}
	}

	// 持久化先于任何投递；落库失败即整体失败，不产生半完成状态
	if err := s.messages.Create(ctx, message); err != nil {
		return fmt.Errorf("failed to persist message: %w", err)
	}

	push := protocol.NewMessagePush(message)
	if message.IsGroup() {
		s.fanOut(ctx, message, push)
	} else {
		s.registry.SendTo(message.ReceiverID, push)
		// 回声确认：发送方 UI 以这一份（携带落库后的消息 ID）为准，
		// 而不是本地乐观构造的消息
		s.registry.SendTo(message.SenderID, push)
	}

	s.events.Publish(ctx, events.Event{
		Name:      events.EventMessageCreated,
		UserID:    message.SenderID,
		MessageID: message.ID,
	})
	return nil
}

// fanOut 把群消息推给每个在线成员，含发送方自己。离线成员靠拉取历史
// 补齐；单个目标的写失败互不影响。
func (s *RouterService) fanOut(ctx context.Context, message *model.Message, push protocol.Outbound) {
	memberIDs, err := s.groups.MemberIDs(ctx, message.GroupID)
	if err != nil {
		// 消息已持久化，成员都能通过历史读到；这里只损失即时性
		s.logger.Error("failed to resolve group members for fan-out",
			zap.String("group_id", message.GroupID),
			zap.Int64("message_id", message.ID),
			zap.Error(err))
		return
	}
	delivered := 0
	for _, memberID := range memberIDs {
		if s.registry.SendTo(memberID, push) {
			delivered++
		}
	}
	s.logger.Debug("group fan-out",
		zap.String("group_id", message.GroupID),
		zap.Int64("message_id", message.ID),
		zap.Int("delivered", delivered),
		zap.Int("members", len(memberIDs)))
}
