// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"feedhub/internal/auth"
	"feedhub/internal/cache"
	"feedhub/internal/config"
	"feedhub/internal/database"
	"feedhub/internal/featureflags"
	"feedhub/internal/middleware"
	"feedhub/internal/models"
	"feedhub/internal/repository"
	"feedhub/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	tokens         *auth.TokenIssuer
	featureFlags   *featureflags.Manager
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	authService    *service.AuthService
	userService    *service.UserService
	postService    *service.PostService
	imageService   *service.ImageService
	cleanupService *service.CleanupService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)

	prom := middleware.InitMetrics("feedhub-api")
	flags := featureflags.NewManager(cfg.FeatureFlags)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret)

	cleanup := service.NewCleanupService(cfg.UploadDir, service.DefaultCleanupQueueSize)
	cleanup.Synchronous = flags.Enabled(featureflags.CleanupSync, 0)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		tokens:         tokens,
		featureFlags:   flags,
		userRepo:       userRepo,
		postRepo:       postRepo,
		cleanupService: cleanup,
	}
	server.authService = service.NewAuthService(userRepo, tokens)
	server.userService = service.NewUserService(userRepo)
	server.postService = service.NewPostService(postRepo, userRepo, cleanup)
	server.imageService = service.NewImageService(cfg.UploadDir, cfg.MaxUploadSizeBytes(), cleanup)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Uploaded images are served statically
	app.Static("/images", filepath.Join(s.config.UploadDir, "images"))

	api := app.Group("/api")

	// The identity guard runs for every API route. It never rejects; it only
	// resolves the caller's identity for downstream handlers.
	api.Use(s.IdentityGuard())

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/signup", s.Signup)
	authGroup.Post("/login", s.Login)

	// Flag evaluation for the caller; anonymous callers see the zero-user view
	api.Get("/feature-flags", s.GetFeatureFlags)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	// User routes
	users := protected.Group("/users")
	users.Get("/me", s.GetMe)
	users.Get("/me/posts", s.GetMyPosts)
	users.Get("/me/status", s.GetUserStatus)
	users.Put("/me/status", s.UpdateUserStatus)

	// Post routes; reads require auth as well
	posts := protected.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", s.CreatePost)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	// Image upload side channel
	protected.Put("/post-image", s.UploadPostImage)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// The app degrades gracefully without a cache
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// GetFeatureFlags returns the evaluated flag set for the caller, so clients
// can gate optional UI without re-implementing rollout logic.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"flags": s.featureFlags.Snapshot(s.identity(c).UserID),
	})
}

// IdentityGuard resolves the request's identity from the Authorization
// header. Absent, malformed or invalid tokens yield an anonymous identity;
// the guard never writes an error response.
func (s *Server) IdentityGuard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := models.Identity{}

		if authHeader := c.Get("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				if claims, err := s.tokens.Verify(parts[1]); err == nil {
					identity = models.Identity{UserID: claims.UserID, Email: claims.Email}
				}
			}
		}

		c.Locals(identityLocalsKey, identity)
		if identity.Authenticated() {
			// Sync to UserContext for logging and downstream services
			c.SetUserContext(middleware.WithUserID(c.UserContext(), identity.UserID))
		}

		return c.Next()
	}
}

// AuthRequired rejects anonymous requests with 401. Must run after the
// identity guard.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.identity(c).Authenticated() {
			return models.RespondWithError(c, models.NewAuthenticationError("Not authenticated."))
		}
		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName:      "Feedhub API",
		BodyLimit:    int(s.config.MaxUploadSizeBytes()) + 1<<20,
		ErrorHandler: apiErrorHandler,
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	s.cleanupService.StartBackgroundWorker(s.shutdownCtx)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// apiErrorHandler converts uncaught errors into the standard error body.
func apiErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError {
		return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Error: fiberErr.Message})
	}
	log.Printf("Error: %v", err)
	return models.RespondWithError(c, models.NewInternalError(err))
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the cleanup worker
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Close database connection
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	// The cache package owns the Redis client lifecycle
	cache.Close()

	log.Println("Server shutdown complete")
	return nil
}
