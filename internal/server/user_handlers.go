package server

import (
	"feedhub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UpdateStatusRequest is the body of a status update.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// GetMe returns the caller's profile with their most recent posts.
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.GetProfile(c.UserContext(), s.identity(c).UserID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User fetched.",
		"user":    user,
	})
}

// GetUserStatus returns the caller's status line.
func (s *Server) GetUserStatus(c *fiber.Ctx) error {
	status, err := s.userService.GetStatus(c.UserContext(), s.identity(c).UserID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{
		"status": status,
	})
}

// UpdateUserStatus replaces the caller's status line.
func (s *Server) UpdateUserStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	if err := s.userService.SetStatus(c.UserContext(), s.identity(c).UserID, req.Status); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User updated.",
	})
}
