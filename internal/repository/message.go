package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/harbor-im/harbor/internal/model"
)

type IMessageRepository interface {
	Create(ctx context.Context, message *model.Message) error
	FindByID(ctx context.Context, id int64) (*model.Message, error)

	// FindPrivate returns private history between viewer and partner, oldest
	// first, excluding messages hidden for the viewer.
	FindPrivate(ctx context.Context, viewerID, partnerID string, beforeID int64, limit int) ([]*model.Message, error)

	// FindByGroup returns group history, oldest first, excluding messages
	// hidden for the viewer.
	FindByGroup(ctx context.Context, groupID, viewerID string, beforeID int64, limit int) ([]*model.Message, error)

	// LastVisible returns the most recent message of the conversation that is
	// not hidden for the viewer, or ErrNotFound for an empty conversation.
	LastVisible(ctx context.Context, viewerID, partnerID, conversationType string) (*model.Message, error)

	// UnreadCount counts conversation messages authored by someone other than
	// the viewer, not hidden for the viewer, lacking a read row by the viewer.
	UnreadCount(ctx context.Context, viewerID, partnerID, conversationType string) (int64, error)

	// FindUnread lists the messages UnreadCount would count, for markRead.
	FindUnread(ctx context.Context, viewerID, partnerID, conversationType string) ([]*model.Message, error)

	HasReadStatus(ctx context.Context, messageID int64, userID string) (bool, error)
	CreateReadStatus(ctx context.Context, rs *model.MessageReadStatus) error

	Hide(ctx context.Context, messageID int64, userID string) error

	// PrivatePartners returns the distinct user IDs the viewer has exchanged
	// private messages with.
	PrivatePartners(ctx context.Context, viewerID string) ([]string, error)
}

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) IMessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	if err := message.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *MessageRepository) FindByID(ctx context.Context, id int64) (*model.Message, error) {
	var message model.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &message, nil
}

// visibleFor filters out messages the viewer has soft-deleted.
func visibleFor(viewerID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"NOT EXISTS (SELECT 1 FROM message_visibilities v WHERE v.message_id = messages.id AND v.user_id = ?)",
			viewerID,
		)
	}
}

// privateBetween matches both directions of one private conversation.
func privateBetween(a, b string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			a, b, b, a,
		)
	}
}

func (r *MessageRepository) FindPrivate(ctx context.Context, viewerID, partnerID string, beforeID int64, limit int) ([]*model.Message, error) {
	query := r.db.WithContext(ctx).
		Scopes(privateBetween(viewerID, partnerID), visibleFor(viewerID))
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}
	var messages []*model.Message
	if err := query.Order("id ASC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *MessageRepository) FindByGroup(ctx context.Context, groupID, viewerID string, beforeID int64, limit int) ([]*model.Message, error) {
	query := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Scopes(visibleFor(viewerID))
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}
	var messages []*model.Message
	if err := query.Order("id ASC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *MessageRepository) conversation(ctx context.Context, viewerID, partnerID, conversationType string) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.Message{})
	if conversationType == model.ConversationGroup {
		return db.Where("group_id = ?", partnerID)
	}
	return db.Scopes(privateBetween(viewerID, partnerID))
}

func (r *MessageRepository) LastVisible(ctx context.Context, viewerID, partnerID, conversationType string) (*model.Message, error) {
	var message model.Message
	err := r.conversation(ctx, viewerID, partnerID, conversationType).
		Scopes(visibleFor(viewerID)).
		Order("created_at DESC, id DESC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) unreadQuery(ctx context.Context, viewerID, partnerID, conversationType string) *gorm.DB {
	return r.conversation(ctx, viewerID, partnerID, conversationType).
		Where("sender_id <> ?", viewerID).
		Scopes(visibleFor(viewerID)).
		Where(
			"NOT EXISTS (SELECT 1 FROM message_read_statuses rs WHERE rs.message_id = messages.id AND rs.user_id = ?)",
			viewerID,
		)
}

func (r *MessageRepository) UnreadCount(ctx context.Context, viewerID, partnerID, conversationType string) (int64, error) {
	var count int64
	err := r.unreadQuery(ctx, viewerID, partnerID, conversationType).Count(&count).Error
	return count, err
}

func (r *MessageRepository) FindUnread(ctx context.Context, viewerID, partnerID, conversationType string) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.unreadQuery(ctx, viewerID, partnerID, conversationType).
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *MessageRepository) HasReadStatus(ctx context.Context, messageID int64, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.MessageReadStatus{}).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MessageRepository) CreateReadStatus(ctx context.Context, rs *model.MessageReadStatus) error {
	return r.db.WithContext(ctx).Create(rs).Error
}

func (r *MessageRepository) Hide(ctx context.Context, messageID int64, userID string) error {
	return r.db.WithContext(ctx).Create(&model.MessageVisibility{
		MessageID: messageID,
		UserID:    userID,
	}).Error
}

func (r *MessageRepository) PrivatePartners(ctx context.Context, viewerID string) ([]string, error) {
	var partners []string
	err := r.db.WithContext(ctx).Raw(
		`SELECT DISTINCT CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS partner
		 FROM messages
		 WHERE receiver_id <> '' AND (sender_id = ? OR receiver_id = ?)`,
		viewerID, viewerID, viewerID,
	).Scan(&partners).Error
	if err != nil {
		return nil, err
	}
	return partners, nil
}
