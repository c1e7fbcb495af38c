package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/mentorbook/internal/model"
	"go.uber.org/zap"
)

// UserService находит вызывающих пользователей и их собеседников.
// Учётными записями управляет другая система, сервис их только читает.
type UserService struct {
	users  UserRepository
	logger *zap.Logger
}

func NewUserService(users UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// ResolveActor превращает ID аутентифицированного пользователя в актора с ролью
func (s *UserService) ResolveActor(ctx context.Context, userID int64) (model.Actor, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return model.Actor{}, err
	}

	if !user.Role.Valid() {
		s.logger.Warn("User has unknown role",
			zap.Int64("user_id", userID),
			zap.String("role", string(user.Role)),
		)
		return model.Actor{}, permissionDenied("user has no booking role")
	}

	return model.Actor{ID: user.ID, Role: user.Role}, nil
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
