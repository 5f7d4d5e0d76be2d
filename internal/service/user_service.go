package service

import (
	"context"
	"strings"

	"feedhub/internal/models"
	"feedhub/internal/repository"
)

// UserService handles profile operations on the caller's own account.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// GetStatus returns the status line of the given user.
func (s *UserService) GetStatus(ctx context.Context, userID uint) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Status, nil
}

// GetProfile returns the user's record with their most recent posts.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetByIDWithPosts(ctx, userID, DefaultPageSize)
}

// SetStatus replaces the status line of the given user. The target is always
// the caller's own row; the ID comes from the verified identity. Only the
// status column is written.
func (s *UserService) SetStatus(ctx context.Context, userID uint, status string) error {
	if strings.TrimSpace(status) == "" {
		return models.NewValidationError("Status must not be empty.")
	}
	return s.userRepo.UpdateStatus(ctx, userID, status)
}
