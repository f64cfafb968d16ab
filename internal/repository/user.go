package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/harbor-im/harbor/internal/model"
)

var ErrNotFound = errors.New("record not found")

type IUserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.User, error)
	FindByUserName(ctx context.Context, username string) (*model.User, error)
	UpdateStatus(ctx context.Context, id string, status int) error
	AddContactPair(ctx context.Context, userID, contactID string) error
	AreContacts(ctx context.Context, userID, contactID string) (bool, error)
	ListContacts(ctx context.Context, userID string) ([]*model.User, error)
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) IUserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	var users []*model.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) FindByUserName(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status int) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// AddContactPair 在一个事务里写入双向联系人关系
func (r *UserRepository) AddContactPair(ctx context.Context, userID, contactID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pair := []*model.Contact{
			{UserID: userID, ContactID: contactID},
			{UserID: contactID, ContactID: userID},
		}
		return tx.Create(&pair).Error
	})
}

func (r *UserRepository) AreContacts(ctx context.Context, userID, contactID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Contact{}).
		Where("user_id = ? AND contact_id = ?", userID, contactID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepository) ListContacts(ctx context.Context, userID string) ([]*model.User, error) {
	var users []*model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN contacts ON contacts.contact_id = users.id").
		Where("contacts.user_id = ?", userID).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
