// Package service contains the application's business logic.
package service

import (
	"context"

	"feedhub/internal/auth"
	"feedhub/internal/models"
	"feedhub/internal/observability"
	"feedhub/internal/repository"
	"feedhub/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the 12 rounds the password hashes were minted with.
const bcryptCost = 12

// SignupInput carries the fields of a registration request.
type SignupInput struct {
	Email    string
	Name     string
	Password string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token  string `json:"token"`
	UserID uint   `json:"userId"`
}

// AuthService handles registration and login.
type AuthService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenIssuer
}

// NewAuthService creates an AuthService.
func NewAuthService(userRepo repository.UserRepository, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens}
}

// Signup validates the input, hashes the password and stores the new user.
// All field problems are reported together in a single validation error.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	var fields []models.FieldError
	if err := validation.ValidateEmail(in.Email); err != nil {
		fields = append(fields, models.FieldError{Field: "email", Message: "E-Mail is invalid."})
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		fields = append(fields, models.FieldError{Field: "password", Message: "Password too short!"})
	}
	if err := validation.ValidateName(in.Name); err != nil {
		fields = append(fields, models.FieldError{Field: "name", Message: "Name too short!"})
	}
	if len(fields) > 0 {
		observability.AuthAttemptsTotal.WithLabelValues("signup", "invalid").Inc()
		return nil, models.NewFieldValidationError("Invalid input.", fields)
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		observability.AuthAttemptsTotal.WithLabelValues("signup", "duplicate").Inc()
		return nil, models.NewValidationError("User exists already!")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:    in.Email,
		Name:     in.Name,
		Password: string(hashed),
		Status:   models.DefaultUserStatus,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.AuthAttemptsTotal.WithLabelValues("signup", "success").Inc()
	return user, nil
}

// Login verifies credentials and issues a token. Unknown addresses and wrong
// passwords are reported distinctly, matching the API contract.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		observability.AuthAttemptsTotal.WithLabelValues("login", "unknown_email").Inc()
		return nil, &models.AppError{
			Code:    models.CodeNotFound,
			Message: "A user with this email could not be found.",
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		observability.AuthAttemptsTotal.WithLabelValues("login", "wrong_password").Inc()
		return nil, models.NewAuthenticationError("Wrong password!")
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	observability.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return &LoginResult{Token: token, UserID: user.ID}, nil
}
