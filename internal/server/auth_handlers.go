package server

import (
	"feedhub/internal/featureflags"
	"feedhub/internal/models"
	"feedhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SignupRequest is the body of a registration request.
type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest is the body of a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup handles user registration
func (s *Server) Signup(c *fiber.Ctx) error {
	if s.featureFlags.Enabled(featureflags.SignupDisabled, 0) {
		return models.RespondWithError(c,
			models.NewAuthorizationError("Signups are currently disabled."))
	}

	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.Signup(c.UserContext(), service.SignupInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created!",
		"userId":  user.ID,
	})
}

// Login handles user authentication
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	result, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(result)
}
