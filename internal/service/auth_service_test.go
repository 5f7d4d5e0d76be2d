package service

import (
	"context"
	"errors"
	"testing"

	"feedhub/internal/auth"
	"feedhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn          func(context.Context, uint) (*models.User, error)
	getByIDWithPostsFn func(context.Context, uint, int) (*models.User, error)
	getByEmailFn       func(context.Context, string) (*models.User, error)
	createFn           func(context.Context, *models.User) error
	updateStatusFn     func(context.Context, uint, string) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDWithPosts(ctx context.Context, id uint, limit int) (*models.User, error) {
	return s.getByIDWithPostsFn(ctx, id, limit)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateStatus(ctx context.Context, id uint, status string) error {
	return s.updateStatusFn(ctx, id, status)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:          func(_ context.Context, _ uint) (*models.User, error) { return &models.User{}, nil },
		getByIDWithPostsFn: func(_ context.Context, _ uint, _ int) (*models.User, error) { return &models.User{}, nil },
		getByEmailFn:       func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:           func(_ context.Context, _ *models.User) error { return nil },
		updateStatusFn:     func(_ context.Context, _ uint, _ string) error { return nil },
	}
}

func testTokenIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer("service-test-secret")
}

// assertAppErrorCode asserts that err is an AppError with the given code.
func assertAppErrorCode(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestAuthService_Signup_AggregatesFieldErrors(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(noopUserRepo(), testTokenIssuer())

	_, err := svc.Signup(context.Background(), SignupInput{
		Email:    "not-an-email",
		Name:     "ab",
		Password: "123",
	})

	appErr := assertAppErrorCode(t, err, models.CodeValidation)
	require.Len(t, appErr.Data, 3)

	fields := make(map[string]string, len(appErr.Data))
	for _, f := range appErr.Data {
		fields[f.Field] = f.Message
	}
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "name")
}

func TestAuthService_Signup_SingleFieldError(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(noopUserRepo(), testTokenIssuer())

	_, err := svc.Signup(context.Background(), SignupInput{
		Email:    "user@example.com",
		Name:     "Alice Smith",
		Password: "1234",
	})

	appErr := assertAppErrorCode(t, err, models.CodeValidation)
	require.Len(t, appErr.Data, 1)
	assert.Equal(t, "password", appErr.Data[0].Field)
}

func TestAuthService_Signup_DuplicateEmail(t *testing.T) {
	t.Parallel()

	repo := noopUserRepo()
	repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		return &models.User{ID: 1, Email: email}, nil
	}
	created := false
	repo.createFn = func(_ context.Context, _ *models.User) error {
		created = true
		return nil
	}

	svc := NewAuthService(repo, testTokenIssuer())
	_, err := svc.Signup(context.Background(), SignupInput{
		Email:    "exists@example.com",
		Name:     "Alice Smith",
		Password: "supersecret",
	})

	appErr := assertAppErrorCode(t, err, models.CodeValidation)
	assert.Equal(t, "User exists already!", appErr.Message)
	assert.False(t, created, "duplicate signup must not create a row")
}

func TestAuthService_Signup_Success(t *testing.T) {
	t.Parallel()

	var stored *models.User
	repo := noopUserRepo()
	repo.createFn = func(_ context.Context, user *models.User) error {
		user.ID = 7
		stored = user
		return nil
	}

	svc := NewAuthService(repo, testTokenIssuer())
	user, err := svc.Signup(context.Background(), SignupInput{
		Email:    "new@example.com",
		Name:     "Alice Smith",
		Password: "supersecret",
	})
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, uint(7), user.ID)
	assert.Equal(t, models.DefaultUserStatus, stored.Status)
	assert.NotEqual(t, "supersecret", stored.Password, "password must be stored hashed")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("supersecret")))
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(noopUserRepo(), testTokenIssuer())
	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever")

	appErr := assertAppErrorCode(t, err, models.CodeNotFound)
	assert.Equal(t, "A user with this email could not be found.", appErr.Message)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := noopUserRepo()
	repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		return &models.User{ID: 3, Email: email, Password: string(hash)}, nil
	}

	svc := NewAuthService(repo, testTokenIssuer())
	_, err = svc.Login(context.Background(), "user@example.com", "battery staple")

	assertAppErrorCode(t, err, models.CodeUnauthenticated)
}

func TestAuthService_Login_Success(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := noopUserRepo()
	repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		return &models.User{ID: 3, Email: email, Password: string(hash)}, nil
	}

	issuer := testTokenIssuer()
	svc := NewAuthService(repo, issuer)

	result, err := svc.Login(context.Background(), "user@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, uint(3), result.UserID)

	claims, err := issuer.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestAuthService_Login_RepoError(t *testing.T) {
	t.Parallel()

	repo := noopUserRepo()
	repo.getByEmailFn = func(_ context.Context, _ string) (*models.User, error) {
		return nil, models.NewInternalError(errors.New("db down"))
	}

	svc := NewAuthService(repo, testTokenIssuer())
	_, err := svc.Login(context.Background(), "user@example.com", "pw")

	assertAppErrorCode(t, err, models.CodeInternal)
}
