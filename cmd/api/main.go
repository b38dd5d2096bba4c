package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/campusplay/internal/config"
	"github.com/joshua-takyi/campusplay/internal/connect"
	"github.com/joshua-takyi/campusplay/internal/container"
	"github.com/joshua-takyi/campusplay/internal/routes"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg)
	logger.Info("Starting CampusPlay API server", "environment", cfg.Environment, "store", cfg.StoreBackend)

	cld, err := connect.CloudinaryCredentials(cfg)
	if err != nil {
		logger.Error("Failed to connect to Cloudinary", "error", err)
		os.Exit(1)
	}
	if cld == nil {
		logger.Warn("Cloudinary not configured, avatar uploads disabled")
	}

	// Initialize database connections
	supaClient, err := connect.InitSupabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to Supabase", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to Supabase successfully")

	var mongoClient *mongo.Client
	if !cfg.UseMemoryStore() {
		mongoClient, err = connect.MongoDBConnect(cfg.MongoDBURI, cfg.MongoDBPassword)
		if err != nil {
			logger.Error("Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		logger.Info("Connected to MongoDB successfully", "database", cfg.MongoDBDatabase)
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = connect.RedisConnect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			// the cache is optional, names fall back to the profile store
			logger.Warn("Redis unavailable, display-name cache disabled", "error", err)
			redisClient = nil
		} else {
			logger.Info("Connected to Redis successfully", "addr", cfg.RedisAddr)
		}
	}

	// Initialize dependency container
	appContainer := container.NewContainer(cfg, logger, supaClient, mongoClient, redisClient, cld)

	if appContainer.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
		if err := appContainer.Mongo.EnsureIndexes(ctx); err != nil {
			logger.Error("Failed to create MongoDB indexes", "error", err)
		}
		cancel()
	}

	// Setup routes
	router := routes.SetupRoutes(appContainer)

	// Create HTTP server. No WriteTimeout: live routes hold websockets open.
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	stopCleanup := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				appContainer.ChatLimiter.CleanupLimiters()
			case <-stopCleanup:
				return
			}
		}
	}()

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")
	close(stopCleanup)

	// Closing the hubs first lets open websockets finish
	appContainer.Close()

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Close database connections
	connect.Disconnect()
	if err := connect.MongoDBDisconnect(); err != nil {
		logger.Error("Error disconnecting from MongoDB", "error", err)
	}
	if err := connect.RedisDisconnect(); err != nil {
		logger.Error("Error disconnecting from Redis", "error", err)
	}

	logger.Info("Server exited")
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	level := parseLevel(cfg.LogLevel)
	if cfg.IsProduction() {
		// JSON logging for production
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		// Human-readable logging for development
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
