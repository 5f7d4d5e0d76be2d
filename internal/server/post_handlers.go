package server

import (
	"feedhub/internal/models"
	"feedhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PostRequest is the body of a post create or update.
type PostRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

// GetPosts returns one page of the feed, newest first.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	result, err := s.postService.List(c.UserContext(), parsePagination(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(result)
}

// GetMyPosts returns one page of the caller's own posts, newest first.
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListByOwner(c.UserContext(), s.identity(c).UserID, parsePagination(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{
		"posts": posts,
	})
}

// GetPost returns a single post with its owner.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.Get(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Post fetched.",
		"post":    post,
	})
}

// CreatePost creates a post owned by the caller.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req PostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Create(c.UserContext(), service.CreatePostInput{
		UserID:   s.identity(c).UserID,
		Title:    req.Title,
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Post created successfully!",
		"post":    post,
	})
}

// UpdatePost edits a post owned by the caller.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req PostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Update(c.UserContext(), service.UpdatePostInput{
		UserID:   s.identity(c).UserID,
		PostID:   id,
		Title:    req.Title,
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Post updated!",
		"post":    post,
	})
}

// DeletePost removes a post owned by the caller.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.Delete(c.UserContext(), s.identity(c).UserID, id); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Deleted post.",
	})
}
