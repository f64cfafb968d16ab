package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/harbor-im/harbor/internal/model"
	"github.com/harbor-im/harbor/internal/repository"
)

// SessionService 按需聚合会话摘要。每次调用全量重算，不维护增量物化
// 状态；聊天应用的规模下够用，是已知的扩展上限而非正确性问题。
type SessionService struct {
	messages repository.IMessageRepository
	users    repository.IUserRepository
	groups   repository.IGroupRepository
	reads    *ReadStatusService
	logger   *zap.Logger
}

func NewSessionService(
	messages repository.IMessageRepository,
	users repository.IUserRepository,
	groups repository.IGroupRepository,
	reads *ReadStatusService,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		messages: messages,
		users:    users,
		groups:   groups,
		reads:    reads,
		logger:   logger,
	}
}

// Sessions 为 userID 生成会话列表：每个私聊对端一行、每个有消息的群
// 一行，按最后一条消息时间倒序，时间相同按消息 ID 倒序保证确定性。
func (s *SessionService) Sessions(ctx context.Context, userID string) ([]*model.MessageSession, error) {
	var sessions []*model.MessageSession

	partnerIDs, err := s.messages.PrivatePartners(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list private partners: %w", err)
	}
	partners, err := s.users.FindByIDs(ctx, partnerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load partner profiles: %w", err)
	}
	profiles := make(map[string]*model.User, len(partners))
	for _, u := range partners {
		profiles[u.ID] = u
	}

	for _, partnerID := range partnerIDs {
		row, err := s.buildRow(ctx, userID, partnerID, model.ConversationPrivate)
		if err != nil {
			return nil, err
		}
		if row == nil {
			continue // 全部被隐藏，对该用户不成一个会话
		}
		if profile, ok := profiles[partnerID]; ok {
			row.PartnerName = profile.UserName
			if profile.Nickname != "" {
				row.PartnerName = profile.Nickname
			}
			row.AvatarURL = profile.AvatarURL
		}
		sessions = append(sessions, row)
	}

	groups, err := s.groups.GroupsFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	for _, group := range groups {
		row, err := s.buildRow(ctx, userID, group.ID, model.ConversationGroup)
		if err != nil {
			return nil, err
		}
		if row == nil {
			continue // 还没有可见消息的群不产生会话行
		}
		row.PartnerName = group.Name
		row.AvatarURL = group.AvatarURL
		sessions = append(sessions, row)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].LastTime.Equal(sessions[j].LastTime) {
			return sessions[i].LastTime.After(sessions[j].LastTime)
		}
		return sessions[i].LastID > sessions[j].LastID
	})
	return sessions, nil
}

func (s *SessionService) buildRow(ctx context.Context, userID, partnerID, conversationType string) (*model.MessageSession, error) {
	last, err := s.messages.LastVisible(ctx, userID, partnerID, conversationType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load last message: %w", err)
	}

	unread, err := s.reads.UnreadCount(ctx, userID, partnerID, conversationType)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread: %w", err)
	}

	return &model.MessageSession{
		PartnerID:   partnerID,
		Type:        conversationType,
		LastID:      last.ID,
		LastContent: last.Content,
		LastMsgType: last.MsgType,
		LastTime:    last.CreatedAt,
		UnreadCount: unread,
	}, nil
}
