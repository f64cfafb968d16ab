package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/harbor-im/harbor/internal/model"
)

// ErrAlreadyResolved is returned when resolving a request that already left
// the PENDING state. The terminal transition happens exactly once.
var ErrAlreadyResolved = errors.New("friend request already resolved")

type IFriendRequestRepository interface {
	Create(ctx context.Context, req *model.FriendRequest) error
	FindByID(ctx context.Context, id string) (*model.FriendRequest, error)

	// PendingBetween finds a PENDING request between the pair in either
	// direction, or ErrNotFound.
	PendingBetween(ctx context.Context, a, b string) (*model.FriendRequest, error)

	// PendingFor lists PENDING requests addressed to the receiver, oldest
	// first. Used by the connect-time catch-up batch.
	PendingFor(ctx context.Context, receiverID string) ([]*model.FriendRequest, error)

	// Resolve moves the request to ACCEPTED or REJECTED. The update is
	// conditional on the row still being PENDING; a second resolve returns
	// ErrAlreadyResolved.
	Resolve(ctx context.Context, id, status string) (*model.FriendRequest, error)
}

type FriendRequestRepository struct {
	db *gorm.DB
}

func NewFriendRequestRepository(db *gorm.DB) IFriendRequestRepository {
	return &FriendRequestRepository{db: db}
}

func (r *FriendRequestRepository) Create(ctx context.Context, req *model.FriendRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *FriendRequestRepository) FindByID(ctx context.Context, id string) (*model.FriendRequest, error) {
	var req model.FriendRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *FriendRequestRepository) PendingBetween(ctx context.Context, a, b string) (*model.FriendRequest, error) {
	var req model.FriendRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", model.FriendRequestPending).
		Where(
			"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			a, b, b, a,
		).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *FriendRequestRepository) PendingFor(ctx context.Context, receiverID string) ([]*model.FriendRequest, error) {
	var reqs []*model.FriendRequest
	err := r.db.WithContext(ctx).
		Where("receiver_id = ? AND status = ?", receiverID, model.FriendRequestPending).
		Order("created_at ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *FriendRequestRepository) Resolve(ctx context.Context, id, status string) (*model.FriendRequest, error) {
	var req model.FriendRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&req).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		res := tx.Model(&model.FriendRequest{}).
			Where("id = ? AND status = ?", id, model.FriendRequestPending).
			Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyResolved
		}
		req.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}
