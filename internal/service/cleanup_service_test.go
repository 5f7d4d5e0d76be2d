package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, rel string) string {
	t.Helper()
	abs := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o750))
	require.NoError(t, os.WriteFile(abs, []byte("data"), 0o600))
	return abs
}

func TestCleanupService_SynchronousDelete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	abs := writeTestFile(t, dir, "images/a--b.png")

	c := NewCleanupService(dir, 4)
	c.Synchronous = true
	c.Enqueue("images/a--b.png")

	assert.NoFileExists(t, abs)
}

func TestCleanupService_BackgroundWorkerDeletes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	abs := writeTestFile(t, dir, "images/a--b.png")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewCleanupService(dir, 4)
	c.StartBackgroundWorker(ctx)
	c.Enqueue("images/a--b.png")

	assert.Eventually(t, func() bool {
		_, err := os.Stat(abs)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCleanupService_RejectsEscapingPaths(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	dir := filepath.Join(parent, "uploads")
	require.NoError(t, os.MkdirAll(dir, 0o750))

	outside := filepath.Join(parent, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep me"), 0o600))

	c := NewCleanupService(dir, 4)
	c.Synchronous = true

	c.Enqueue("../secret.txt")
	c.Enqueue(outside)
	c.Enqueue("..")
	c.Enqueue(".")

	assert.FileExists(t, outside)
}

func TestCleanupService_MissingFileIsQuiet(t *testing.T) {
	t.Parallel()

	c := NewCleanupService(t.TempDir(), 4)
	c.Synchronous = true

	// Must not panic or error; the file may have been removed already.
	c.Enqueue("images/never-existed.png")
	c.Enqueue("")
}

func TestCleanupService_FullQueueDropsWithoutBlocking(t *testing.T) {
	t.Parallel()

	c := NewCleanupService(t.TempDir(), 1)

	// No worker running: the second enqueue must not block.
	done := make(chan struct{})
	go func() {
		c.Enqueue("images/a.png")
		c.Enqueue("images/b.png")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}
