// Package bootstrap wires up runtime dependencies for the server process.
package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"feedhub/internal/cache"
	"feedhub/internal/config"
	"feedhub/internal/database"
	"feedhub/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitRuntime connects to DB and Redis and ensures the optional development
// root user exists.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevRootUser(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root user: %w", err)
	}

	return db, r, nil
}

// ensureDevRootUser creates user ID 1 in development when DEV_ROOT_EMAIL is
// configured, so a fresh database is immediately usable.
func ensureDevRootUser(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") {
		return nil
	}

	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		return nil
	}
	name := strings.TrimSpace(cfg.DevRootName)
	if name == "" {
		name = "root user"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_ROOT_EMAIL is configured")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.First(&root, 1).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				ID:       1,
				Email:    email,
				Name:     name,
				Password: string(hashedPassword),
				Status:   models.DefaultUserStatus,
			}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
		case findErr != nil:
			return findErr
		default:
			return nil
		}

		// Ensure users ID sequence is not behind explicit ID insertion.
		// This is PostgreSQL-specific.
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec(`
				SELECT setval(
					pg_get_serial_sequence('users', 'id'),
					GREATEST((SELECT COALESCE(MAX(id), 1) FROM users), 1),
					true
				)
			`).Error; err != nil {
				return fmt.Errorf("failed to reset users sequence: %w", err)
			}
		}

		return nil
	}); err != nil {
		return err
	}

	log.Printf("development root user bootstrap ensured for user ID 1 (%s)", email)
	return nil
}
