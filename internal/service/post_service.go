package service

import (
	"context"
	"errors"

	"feedhub/internal/models"
	"feedhub/internal/repository"
	"feedhub/internal/validation"
)

// Pagination bounds for post listings.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// CreatePostInput carries the fields needed to create a post.
type CreatePostInput struct {
	UserID   uint
	Title    string
	Content  string
	ImageURL string
}

// UpdatePostInput carries the fields needed to update a post. An empty
// ImageURL keeps the stored image.
type UpdatePostInput struct {
	UserID   uint
	PostID   uint
	Title    string
	Content  string
	ImageURL string
}

// ListPostsInput selects one page of the feed.
type ListPostsInput struct {
	Page     int
	PageSize int
}

// ListPostsResult is one page of posts plus the unfiltered total.
type ListPostsResult struct {
	Posts      []*models.Post `json:"posts"`
	TotalPosts int64          `json:"total_posts"`
}

// PostService handles post business logic. All mutations verify ownership
// against the freshly loaded row, never against client claims.
type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	cleanup  *CleanupService
}

// NewPostService creates a new post service.
func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, cleanup *CleanupService) *PostService {
	return &PostService{postRepo: postRepo, userRepo: userRepo, cleanup: cleanup}
}

// validatePostFields aggregates title and content problems into a single
// validation error.
func validatePostFields(title, content string) error {
	var fields []models.FieldError
	if err := validation.ValidateTitle(title); err != nil {
		fields = append(fields, models.FieldError{Field: "title", Message: "Title is invalid."})
	}
	if err := validation.ValidateContent(content); err != nil {
		fields = append(fields, models.FieldError{Field: "content", Message: "Content is invalid."})
	}
	if len(fields) > 0 {
		return models.NewFieldValidationError("Invalid input.", fields)
	}
	return nil
}

// Create validates and stores a new post owned by the caller.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validatePostFields(in.Title, in.Content); err != nil {
		return nil, err
	}

	// The token may outlive the account; re-check the owner row.
	if _, err := s.userRepo.GetByID(ctx, in.UserID); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return nil, models.NewAuthenticationError("Invalid user.")
		}
		return nil, err
	}

	post := &models.Post{
		Title:    in.Title,
		Content:  in.Content,
		ImageURL: in.ImageURL,
		UserID:   in.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	// Reload so the owner association is populated on the response.
	return s.postRepo.GetByID(ctx, post.ID)
}

// Get returns a single post with its owner.
func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// List returns one page of posts, newest first.
func (s *PostService) List(ctx context.Context, in ListPostsInput) (*ListPostsResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	posts, total, err := s.postRepo.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return &ListPostsResult{Posts: posts, TotalPosts: total}, nil
}

// ListByOwner returns one page of the given user's own posts, newest first.
func (s *PostService) ListByOwner(ctx context.Context, userID uint, in ListPostsInput) ([]*models.Post, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	posts, err := s.postRepo.GetByUserID(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

// Update edits a post owned by the caller. Title and content are replaced;
// the image only when a new value is supplied. A replaced image file is
// scheduled for background deletion.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	if err := validatePostFields(in.Title, in.Content); err != nil {
		return nil, err
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewAuthorizationError("Not authorized!")
	}

	post.Title = in.Title
	post.Content = in.Content
	if in.ImageURL != "" && in.ImageURL != post.ImageURL {
		s.scheduleImageCleanup(post.ImageURL)
		post.ImageURL = in.ImageURL
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a post owned by the caller and schedules its image file for
// cleanup.
func (s *PostService) Delete(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return models.NewAuthorizationError("Not authorized!")
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}

	s.scheduleImageCleanup(post.ImageURL)
	return nil
}

func (s *PostService) scheduleImageCleanup(imagePath string) {
	if imagePath == "" || s.cleanup == nil {
		return
	}
	s.cleanup.Enqueue(imagePath)
	if t := ThumbnailPathFor(imagePath); t != "" {
		s.cleanup.Enqueue(t)
	}
}
