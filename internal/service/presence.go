package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/harbor-im/harbor/internal/events"
	"github.com/harbor-im/harbor/internal/gateway"
	"github.com/harbor-im/harbor/internal/model"
	redispkg "github.com/harbor-im/harbor/internal/pkg/redis"
	"github.com/harbor-im/harbor/internal/protocol"
	"github.com/harbor-im/harbor/internal/repository"
)

// PresenceService 驱动注册表变化的上下线副作用：库内状态、redis 镜像、
// 补推与广播。所有副作用都不阻塞连接的建立与拆除。
type PresenceService struct {
	registry  *gateway.Registry
	users     repository.IUserRepository
	friends   *FriendService
	redis     redispkg.RedisClient // nil 表示不维护镜像
	events    events.Publisher
	logger    *zap.Logger
	onlineTTL time.Duration
}

func NewPresenceService(
	registry *gateway.Registry,
	users repository.IUserRepository,
	friends *FriendService,
	redisClient redispkg.RedisClient,
	publisher events.Publisher,
	logger *zap.Logger,
	onlineTTL time.Duration,
) *PresenceService {
	return &PresenceService{
		registry:  registry,
		users:     users,
		friends:   friends,
		redis:     redisClient,
		events:    publisher,
		logger:    logger,
		onlineTTL: onlineTTL,
	}
}

// Connect 注册连接并向新上线的用户推送补课状态：
// 离线期间积压的 PENDING 好友请求（一个批量信封）和当前在线的其他
// 用户列表，随后向其余连接广播上线事件。
func (s *PresenceService) Connect(ctx context.Context, userID string, conn *gateway.Connection) {
	s.registry.Register(userID, conn)

	if err := s.users.UpdateStatus(ctx, userID, model.StatusOnline); err != nil {
		// 状态写失败不拦截连接，呈现的是旧状态而已
		s.logger.Error("failed to mark user online", zap.String("user_id", userID), zap.Error(err))
	}
	s.mirrorOnline(ctx, userID, true)

	if pending, err := s.friends.PendingFor(ctx, userID); err != nil {
		s.logger.Error("failed to load pending friend requests",
			zap.String("user_id", userID), zap.Error(err))
	} else if len(pending) > 0 {
		conn.Push(protocol.NewFriendRequestPush(pending))
	}

	conn.Push(protocol.Outbound{
		Type:    protocol.PushUserStatus,
		Payload: s.onlinePeers(userID),
	})

	s.registry.Broadcast(protocol.NewUserStatusPush(userID, model.StatusOnline), userID)

	s.events.Publish(ctx, events.Event{Name: events.EventUserOnline, UserID: userID})
}

// Disconnect 注销连接并广播下线。仅当注销的确实是当前注册的连接时才
// 产生副作用：被顶号的旧连接拆除时不能把新连接标成离线。
func (s *PresenceService) Disconnect(ctx context.Context, userID string, conn *gateway.Connection) {
	if !s.registry.Unregister(userID, conn) {
		return
	}

	if err := s.users.UpdateStatus(ctx, userID, model.StatusOffline); err != nil {
		// 记录后继续，下线广播不因存储失败而丢
		s.logger.Error("failed to mark user offline", zap.String("user_id", userID), zap.Error(err))
	}
	s.mirrorOnline(ctx, userID, false)

	s.registry.Broadcast(protocol.NewUserStatusPush(userID, model.StatusOffline), userID)

	s.events.Publish(ctx, events.Event{Name: events.EventUserOffline, UserID: userID})
}

// Refresh 心跳续期 redis 在线镜像。
func (s *PresenceService) Refresh(ctx context.Context, userID string) {
	s.mirrorOnline(ctx, userID, true)
}

func (s *PresenceService) mirrorOnline(ctx context.Context, userID string, online bool) {
	if s.redis == nil {
		return
	}
	var err error
	if online {
		err = s.redis.SetUserOnline(ctx, userID, s.onlineTTL)
	} else {
		err = s.redis.RemoveUserOnline(ctx, userID)
	}
	if err != nil {
		s.logger.Warn("online mirror update failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *PresenceService) onlinePeers(userID string) []protocol.UserStatus {
	peers := []protocol.UserStatus{}
	for _, id := range s.registry.OnlineIDs() {
		if id == userID {
			continue
		}
		peers = append(peers, protocol.UserStatus{UserID: id, Status: model.StatusOnline})
	}
	return peers
}
