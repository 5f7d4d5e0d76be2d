package service

import (
	"context"
	"testing"

	"feedhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_SetStatus_RejectsBlank(t *testing.T) {
	t.Parallel()

	called := false
	repo := noopUserRepo()
	repo.updateStatusFn = func(_ context.Context, _ uint, _ string) error {
		called = true
		return nil
	}

	svc := NewUserService(repo)
	err := svc.SetStatus(context.Background(), 1, "   ")

	assertAppErrorCode(t, err, models.CodeValidation)
	assert.False(t, called, "blank status must not reach the repository")
}

func TestUserService_SetStatus_WritesOnlyTheStatus(t *testing.T) {
	t.Parallel()

	var gotID uint
	var gotStatus string
	repo := noopUserRepo()
	repo.updateStatusFn = func(_ context.Context, id uint, status string) error {
		gotID, gotStatus = id, status
		return nil
	}

	svc := NewUserService(repo)
	require.NoError(t, svc.SetStatus(context.Background(), 7, "Out for lunch"))

	assert.Equal(t, uint(7), gotID)
	assert.Equal(t, "Out for lunch", gotStatus)
}

func TestUserService_GetProfile(t *testing.T) {
	t.Parallel()

	var gotLimit int
	repo := noopUserRepo()
	repo.getByIDWithPostsFn = func(_ context.Context, id uint, limit int) (*models.User, error) {
		gotLimit = limit
		return &models.User{ID: id, Posts: []models.Post{{ID: 1, UserID: id}}}, nil
	}

	svc := NewUserService(repo)
	user, err := svc.GetProfile(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, uint(3), user.ID)
	assert.Equal(t, DefaultPageSize, gotLimit)
	assert.Len(t, user.Posts, 1)
}
