package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"feedhub/internal/auth"
	"feedhub/internal/cache"
	"feedhub/internal/config"
	"feedhub/internal/database"
	"feedhub/internal/featureflags"
	"feedhub/internal/repository"
	"feedhub/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// openTestDB opens an isolated in-memory sqlite database with the
// application schema applied.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: database.NewGormLogger(),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

// newTestServer builds a fully wired server over sqlite and miniredis with
// synchronous image cleanup and no Prometheus middleware.
func newTestServer(t *testing.T) (*fiber.App, *Server) {
	t.Helper()

	db := openTestDB(t)
	mr := miniredis.RunT(t)
	cache.InitRedis(mr.Addr())
	t.Cleanup(cache.Close)

	cfg := &config.Config{
		JWTSecret:       "handler-test-secret",
		Port:            "0",
		UploadDir:       t.TempDir(),
		MaxUploadSizeMB: 5,
		FeatureFlags:    featureflags.CleanupSync + "=on",
		Env:             "test",
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret)
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	cleanup := service.NewCleanupService(cfg.UploadDir, 8)
	cleanup.Synchronous = true

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          cache.GetClient(),
		tokens:         tokens,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		userRepo:       userRepo,
		postRepo:       postRepo,
		authService:    service.NewAuthService(userRepo, tokens),
		userService:    service.NewUserService(userRepo),
		postService:    service.NewPostService(postRepo, userRepo, cleanup),
		imageService:   service.NewImageService(cfg.UploadDir, cfg.MaxUploadSizeBytes(), cleanup),
		cleanupService: cleanup,
	}

	app := fiber.New(fiber.Config{ErrorHandler: apiErrorHandler})
	s.SetupRoutes(app)
	return app, s
}

// doJSON sends a JSON request with an optional bearer token and decodes the
// response body into a generic map.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

// decodeBody decodes a JSON response body into dest.
func decodeBody(r io.Reader, dest any) error {
	return json.NewDecoder(r).Decode(dest)
}

// newRawRequest builds a JSON request from a literal body, useful for
// malformed payloads that json.Marshal could never produce.
func newRawRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// signupAndLogin registers a fresh user and returns their bearer token and ID.
func signupAndLogin(t *testing.T, app *fiber.App, email string) (string, uint) {
	t.Helper()

	status, _ := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    email,
		"name":     "Test Person",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, status)

	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	userID, _ := body["userId"].(float64)
	require.NotZero(t, userID)
	return token, uint(userID)
}
