// Command main is the entry point for the Feedhub backend server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedhub/internal/bootstrap"
	"feedhub/internal/config"
	"feedhub/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Establish DB/Redis and optional development bootstrap
	db, redisClient, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	// Create server with dependency injection
	srv, err := server.NewServerWithDeps(cfg, db, redisClient)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server (blocks until shutdown)
	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
}
