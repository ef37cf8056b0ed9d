package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	httpapi "buildmarket-engine/internal/api/http"
	"buildmarket-engine/internal/config"
	"buildmarket-engine/internal/events"
	"buildmarket-engine/internal/logger"
	"buildmarket-engine/internal/repository/postgres"
	"buildmarket-engine/internal/security"
	"buildmarket-engine/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Buildmarket Engine...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	if err := postgres.Migrate(context.Background(), db, cfg.Database.MigrationsPath); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize event bus. With a Redis address configured events fan out
	// across instances; otherwise they stay in-process.
	var bus events.Bus
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Error("Failed to ping redis", "error", err)
			log.Fatalf("Failed to ping redis: %v", err)
		}
		bus = events.NewRedisBus(client)
		logger.Info("Using redis event bus", "addr", cfg.Redis.Addr)
	} else {
		bus = events.NewMemoryBus()
		logger.Info("Using in-process event bus")
	}

	// Initialize Services
	orderService := service.NewOrderService(store.OrderRepository, bus)
	rentalService := service.NewRentalService(store.RentalRepository, bus, service.WindowPolicy{
		HandoverConfirm: time.Duration(cfg.Windows.HandoverConfirmHours) * time.Hour,
		ReturnConfirm:   time.Duration(cfg.Windows.ReturnConfirmHours) * time.Hour,
	})

	// Initialize HTTP API
	tokens := security.NewTokenManager(cfg.JWT.Secret)
	router := httpapi.NewRouter(
		httpapi.NewOrderHandler(orderService),
		httpapi.NewRentalHandler(rentalService),
		httpapi.NewEventsHandler(bus),
		tokens,
	)

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams stay open indefinitely
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
