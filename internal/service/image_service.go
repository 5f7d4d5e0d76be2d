package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"feedhub/internal/models"
	"feedhub/internal/observability"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// imagesSubdir is the directory under the upload root holding post images.
	imagesSubdir = "images"

	thumbnailMaxSize = 256
	jpegQuality      = 82
)

// UploadImageInput carries one multipart image upload.
type UploadImageInput struct {
	Filename    string
	ContentType string
	Content     []byte
	// OldPath is the previously stored image being replaced, if any. It is
	// scheduled for background deletion.
	OldPath string
}

// UploadImageResult is the stored location of an accepted upload.
type UploadImageResult struct {
	FilePath      string `json:"filePath"`
	ThumbnailPath string `json:"thumbnailPath"`
}

// ImageService stores uploaded post images on disk and renders thumbnails.
type ImageService struct {
	uploadDir          string
	maxUploadSizeBytes int64
	cleanup            *CleanupService
}

// NewImageService creates an ImageService writing below uploadDir.
func NewImageService(uploadDir string, maxUploadSizeBytes int64, cleanup *CleanupService) *ImageService {
	return &ImageService{
		uploadDir:          uploadDir,
		maxUploadSizeBytes: maxUploadSizeBytes,
		cleanup:            cleanup,
	}
}

// Upload validates and stores an image, returning its path relative to the
// upload dir. A JPEG thumbnail is written next to the original.
func (s *ImageService) Upload(ctx context.Context, in UploadImageInput) (*UploadImageResult, error) {
	if len(in.Content) == 0 {
		observability.ImageUploadsTotal.WithLabelValues("rejected").Inc()
		return nil, models.NewValidationError("No file provided!")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		observability.ImageUploadsTotal.WithLabelValues("rejected").Inc()
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes>>20))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		observability.ImageUploadsTotal.WithLabelValues("rejected").Inc()
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		observability.ImageUploadsTotal.WithLabelValues("rejected").Inc()
		return nil, models.NewValidationError("Invalid image file")
	}

	id := uuid.New().String()
	name := id + "--" + sanitizeFilename(in.Filename)
	rel := filepath.ToSlash(filepath.Join(imagesSubdir, name))

	if err := writeBytesToFile(filepath.Join(s.uploadDir, imagesSubdir, name), in.Content); err != nil {
		return nil, models.NewInternalError(err)
	}

	thumbRel := thumbRelFor(id)
	thumb := resizeToFit(decoded, thumbnailMaxSize, thumbnailMaxSize)
	thumbBytes, err := encodeJPEG(thumb, jpegQuality)
	if err != nil {
		_ = os.Remove(filepath.Join(s.uploadDir, imagesSubdir, name))
		return nil, models.NewInternalError(err)
	}
	if err := writeBytesToFile(filepath.Join(s.uploadDir, filepath.FromSlash(thumbRel)), thumbBytes); err != nil {
		_ = os.Remove(filepath.Join(s.uploadDir, imagesSubdir, name))
		return nil, models.NewInternalError(err)
	}

	if in.OldPath != "" && s.cleanup != nil {
		s.cleanup.Enqueue(in.OldPath)
		if t := ThumbnailPathFor(in.OldPath); t != "" {
			s.cleanup.Enqueue(t)
		}
	}

	observability.ImageUploadsTotal.WithLabelValues("stored").Inc()
	return &UploadImageResult{FilePath: rel, ThumbnailPath: thumbRel}, nil
}

// ThumbnailPathFor derives the thumbnail location from a stored image path.
// Returns "" when the path does not follow the <uuid>--<name> convention.
func ThumbnailPathFor(imagePath string) string {
	base := filepath.Base(filepath.FromSlash(imagePath))
	idx := strings.Index(base, "--")
	if idx <= 0 {
		return ""
	}
	id := base[:idx]
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return thumbRelFor(id)
}

func thumbRelFor(id string) string {
	return filepath.ToSlash(filepath.Join(imagesSubdir, id+"--thumb.jpg"))
}

// sanitizeFilename strips path components and characters that could escape
// the upload dir or break static serving.
func sanitizeFilename(name string) string {
	name = filepath.Base(filepath.FromSlash(name))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." || name == ".." {
		return "image"
	}
	return name
}

func isAllowedImageMIME(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
