package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	jwtmw "github.com/harbor-im/harbor/middleware/jwt"

	"github.com/harbor-im/harbor/internal/model"
	"github.com/harbor-im/harbor/internal/repository"
)

var (
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// AuthService 注册与登录。REST 与长连接都走这里签发的 JWT。
type AuthService struct {
	users  repository.IUserRepository
	tokens *jwtmw.TokenManager
}

func NewAuthService(users repository.IUserRepository, tokens *jwtmw.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, username, password, nickname string) (*model.User, error) {
	if _, err := s.users.FindByUserName(ctx, username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.New().String(),
		UserName:     username,
		PasswordHash: string(hash),
		Nickname:     nickname,
		Status:       model.StatusOffline,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	user, err := s.users.FindByUserName(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.UserName)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
