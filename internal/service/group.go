package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harbor-im/harbor/internal/events"
	"github.com/harbor-im/harbor/internal/model"
	"github.com/harbor-im/harbor/internal/repository"
)

var ErrEmptyGroupName = errors.New("group name is empty")

type GroupService struct {
	groups repository.IGroupRepository
	events events.Publisher
	logger *zap.Logger
}

func NewGroupService(groups repository.IGroupRepository, publisher events.Publisher, logger *zap.Logger) *GroupService {
	return &GroupService{groups: groups, events: publisher, logger: logger}
}

// CreateGroup 建群。成员去重并保证建群人在内。
func (s *GroupService) CreateGroup(ctx context.Context, creatorID, name string, memberIDs []string) (*model.Group, error) {
	if name == "" {
		return nil, ErrEmptyGroupName
	}

	seen := map[string]bool{creatorID: true}
	members := []string{creatorID}
	for _, id := range memberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}

	group := &model.Group{
		ID:      uuid.New().String(),
		Name:    name,
		OwnerID: creatorID,
	}
	if err := s.groups.Create(ctx, group, members); err != nil {
		return nil, err
	}

	s.logger.Info("group created",
		zap.String("group_id", group.ID),
		zap.String("owner_id", creatorID),
		zap.Int("members", len(members)))
	s.events.Publish(ctx, events.Event{
		Name:     events.EventGroupCreated,
		UserID:   creatorID,
		EntityID: group.ID,
	})
	return group, nil
}

func (s *GroupService) Members(ctx context.Context, groupID string) ([]string, error) {
	return s.groups.MemberIDs(ctx, groupID)
}

func (s *GroupService) GroupsFor(ctx context.Context, userID string) ([]*model.Group, error) {
	return s.groups.GroupsFor(ctx, userID)
}
