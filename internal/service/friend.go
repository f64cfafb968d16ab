package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harbor-im/harbor/internal/events"
	"github.com/harbor-im/harbor/internal/gateway"
	"github.com/harbor-im/harbor/internal/model"
	"github.com/harbor-im/harbor/internal/protocol"
	"github.com/harbor-im/harbor/internal/repository"
)

var (
	ErrAlreadyContacts = errors.New("users are already contacts")
	ErrRequestPending  = errors.New("a pending request between the pair already exists")
	ErrRequestNotFound = errors.New("friend request not found")
	ErrSelfRequest     = errors.New("cannot send a friend request to yourself")
)

// FriendRequestView is the read view pushed in friendRequest and
// FRIEND_REQUEST_RESULT envelopes.
type FriendRequestView struct {
	ID           string `json:"id"`
	SenderID     string `json:"sender_id"`
	ReceiverID   string `json:"receiver_id"`
	Status       string `json:"status"`
	SenderName   string `json:"sender_name,omitempty"`
	SenderAvatar string `json:"sender_avatar,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// FriendService 负责好友请求的落库与推送。
// 接收方在线则即时推送；离线则依赖连接时的 PENDING 补推，同一请求
// 因此可能被送达多次（按请求 ID 去重属于客户端职责）。
type FriendService struct {
	requests repository.IFriendRequestRepository
	users    repository.IUserRepository
	registry *gateway.Registry
	events   events.Publisher
	logger   *zap.Logger
}

func NewFriendService(
	requests repository.IFriendRequestRepository,
	users repository.IUserRepository,
	registry *gateway.Registry,
	publisher events.Publisher,
	logger *zap.Logger,
) *FriendService {
	return &FriendService{
		requests: requests,
		users:    users,
		registry: registry,
		events:   publisher,
		logger:   logger,
	}
}

// SendRequest 持久化一条 PENDING 请求并尽力即时推送给接收方。
func (s *FriendService) SendRequest(ctx context.Context, senderID, receiverID string) (*model.FriendRequest, error) {
	if senderID == receiverID {
		return nil, ErrSelfRequest
	}

	contacts, err := s.users.AreContacts(ctx, senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to check contacts: %w", err)
	}
	if contacts {
		return nil, ErrAlreadyContacts
	}

	if _, err := s.requests.PendingBetween(ctx, senderID, receiverID); err == nil {
		return nil, ErrRequestPending
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check pending requests: %w", err)
	}

	req := &model.FriendRequest{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     model.FriendRequestPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to persist friend request: %w", err)
	}

	// 在线即推；离线的接收方下次连接时从 PENDING 行补推。
	view := s.view(ctx, req)
	if s.registry.SendTo(receiverID, protocol.NewFriendRequestPush(view)) {
		s.logger.Info("friend request pushed",
			zap.String("request_id", req.ID),
			zap.String("receiver_id", receiverID))
	}

	s.events.Publish(ctx, events.Event{
		Name:     events.EventFriendRequestSent,
		UserID:   senderID,
		EntityID: req.ID,
	})
	return req, nil
}

// HandleRequest 将请求一次性迁移到终态。accept 为真时在同一事务内
// 建立双向联系人，并在发送方在线时推送结果。
func (s *FriendService) HandleRequest(ctx context.Context, requestID string, accept bool) (*model.FriendRequest, error) {
	status := model.FriendRequestRejected
	if accept {
		status = model.FriendRequestAccepted
	}

	req, err := s.requests.Resolve(ctx, requestID, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	if accept {
		if err := s.users.AddContactPair(ctx, req.SenderID, req.ReceiverID); err != nil {
			return nil, fmt.Errorf("failed to add contact pair: %w", err)
		}
	}

	if s.registry.SendTo(req.SenderID, protocol.NewFriendRequestResultPush(s.view(ctx, req))) {
		s.logger.Info("friend request result pushed",
			zap.String("request_id", req.ID),
			zap.String("sender_id", req.SenderID))
	}

	s.events.Publish(ctx, events.Event{
		Name:     events.EventFriendRequestResolved,
		UserID:   req.ReceiverID,
		EntityID: req.ID,
	})
	return req, nil
}

// PendingFor 返回发给 userID 的所有 PENDING 请求视图，连接补推与
// REST 列表共用。
func (s *FriendService) PendingFor(ctx context.Context, userID string) ([]FriendRequestView, error) {
	reqs, err := s.requests.PendingFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]FriendRequestView, 0, len(reqs))
	for _, req := range reqs {
		views = append(views, s.view(ctx, req))
	}
	return views, nil
}

func (s *FriendService) view(ctx context.Context, req *model.FriendRequest) FriendRequestView {
	v := FriendRequestView{
		ID:         req.ID,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Status:     req.Status,
		CreatedAt:  req.CreatedAt.UnixMilli(),
	}
	if sender, err := s.users.FindByID(ctx, req.SenderID); err == nil {
		v.SenderName = sender.UserName
		if sender.Nickname != "" {
			v.SenderName = sender.Nickname
		}
		v.SenderAvatar = sender.AvatarURL
	}
	return v
}
