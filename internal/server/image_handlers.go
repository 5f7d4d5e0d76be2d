package server

import (
	"io"

	"feedhub/internal/models"
	"feedhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadPostImage accepts a multipart image upload and returns the stored
// path. The optional oldPath form field names a previous image to discard.
func (s *Server) UploadPostImage(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, models.NewValidationError("No file provided!"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, models.NewInternalError(err))
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		return models.RespondWithError(c, models.NewInternalError(err))
	}

	result, err := s.imageService.Upload(c.UserContext(), service.UploadImageInput{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
		OldPath:     c.FormValue("oldPath"),
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":       "File stored.",
		"filePath":      result.FilePath,
		"thumbnailPath": result.ThumbnailPath,
	})
}
