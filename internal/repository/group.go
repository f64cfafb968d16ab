package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/harbor-im/harbor/internal/model"
)

type IGroupRepository interface {
	// Create persists the group and its initial member set in one transaction.
	Create(ctx context.Context, group *model.Group, memberIDs []string) error
	FindByID(ctx context.Context, id string) (*model.Group, error)
	MemberIDs(ctx context.Context, groupID string) ([]string, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	GroupsFor(ctx context.Context, userID string) ([]*model.Group, error)
}

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) IGroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) Create(ctx context.Context, group *model.Group, memberIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		members := make([]*model.GroupMember, 0, len(memberIDs))
		for _, id := range memberIDs {
			members = append(members, &model.GroupMember{GroupID: group.ID, UserID: id})
		}
		if len(members) == 0 {
			return nil
		}
		return tx.Create(&members).Error
	})
}

func (r *GroupRepository) FindByID(ctx context.Context, id string) (*model.Group, error) {
	var group model.Group
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (r *GroupRepository) MemberIDs(ctx context.Context, groupID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.GroupMember{}).
		Where("group_id = ?", groupID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GroupRepository) GroupsFor(ctx context.Context, userID string) ([]*model.Group, error) {
	var groups []*model.Group
	err := r.db.WithContext(ctx).
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}
