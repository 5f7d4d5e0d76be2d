package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"feedhub/internal/middleware"
	"feedhub/internal/observability"
)

// DefaultCleanupQueueSize bounds the number of pending file deletions.
const DefaultCleanupQueueSize = 256

// CleanupService deletes orphaned image files in the background. Deletion is
// best effort: failures are logged and counted, never surfaced to the
// operation that orphaned the file.
type CleanupService struct {
	baseDir    string
	queue      chan string
	workerOnce sync.Once

	// Synchronous makes Enqueue delete inline. Used by tests and the
	// cleanup_sync feature flag.
	Synchronous bool
}

// NewCleanupService creates a cleanup service rooted at baseDir. Paths
// outside baseDir are never touched.
func NewCleanupService(baseDir string, queueSize int) *CleanupService {
	if queueSize <= 0 {
		queueSize = DefaultCleanupQueueSize
	}
	return &CleanupService{
		baseDir: baseDir,
		queue:   make(chan string, queueSize),
	}
}

// StartBackgroundWorker launches the deletion worker. Safe to call more than
// once; only the first call starts a goroutine.
func (s *CleanupService) StartBackgroundWorker(ctx context.Context) {
	s.workerOnce.Do(func() {
		go s.workerLoop(ctx)
	})
}

// Enqueue schedules a file for deletion. It never blocks: when the queue is
// full the path is dropped with a log line.
func (s *CleanupService) Enqueue(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if s.Synchronous {
		s.remove(path)
		return
	}

	select {
	case s.queue <- path:
	default:
		observability.ImageCleanupTotal.WithLabelValues("dropped").Inc()
		middleware.Logger.Warn("image cleanup queue full, dropping path",
			slog.String("path", path))
	}
}

func (s *CleanupService) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-s.queue:
			s.remove(path)
		}
	}
}

// remove deletes a single file after confining the path to baseDir.
func (s *CleanupService) remove(path string) {
	abs, ok := s.resolve(path)
	if !ok {
		observability.ImageCleanupTotal.WithLabelValues("rejected").Inc()
		middleware.Logger.Warn("image cleanup path escapes upload dir, skipping",
			slog.String("path", path))
		return
	}

	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			observability.ImageCleanupTotal.WithLabelValues("missing").Inc()
			return
		}
		observability.ImageCleanupTotal.WithLabelValues("failed").Inc()
		middleware.Logger.Warn("image cleanup failed",
			slog.String("path", abs),
			slog.String("error", err.Error()))
		return
	}

	observability.ImageCleanupTotal.WithLabelValues("deleted").Inc()
}

// resolve joins path with the base dir and verifies the result stays inside it.
func (s *CleanupService) resolve(path string) (string, bool) {
	cleaned := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(cleaned) {
		return "", false
	}

	abs := filepath.Join(s.baseDir, cleaned)
	base := filepath.Clean(s.baseDir)
	if abs != base && !strings.HasPrefix(abs, base+string(filepath.Separator)) {
		return "", false
	}
	if abs == base {
		return "", false
	}
	return abs, true
}
