package service

import (
	"context"
	"fmt"
	"strings"

	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewUserService(repo domain.Repository, logger *zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) CreateUser(ctx context.Context, user *models.User) error {
	if strings.TrimSpace(user.Name) == "" {
		return fmt.Errorf("user name is required: %w", database.ErrValidation)
	}
	if strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("user email is required: %w", database.ErrValidation)
	}
	return s.repo.CreateUser(ctx, user)
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *UserService) UserExists(ctx context.Context, id int64) (bool, error) {
	return s.repo.UserExists(ctx, id)
}
