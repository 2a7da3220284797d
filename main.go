package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lpernett/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roadvlm/roadvlm-go-sdk/handlers"
)

// Load environment variables from .env file
func init() {
	err := godotenv.Load()
	if err != nil {
		zap.L().Warn("Error loading .env file")
	}
}

func main() {
	// Set up logging
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	zap.L().Info("Server Version: RoadVLM Analyzer V1")

	// Set up Redis connection
	redisClient := redis.NewClient(&redis.Options{
		Addr:        os.Getenv("REDIS_HOST"),
		Password:    os.Getenv("REDIS_PASSWORD"),
		DB:          0,
		DialTimeout: 20 * time.Second, // initial connection timeout
	})

	redisCtx, cancelRedis := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelRedis()

	_, err = redisClient.Ping(redisCtx).Result()
	if err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	zap.L().Info("Successfully connected to Redis")

	// Define HTTP routes
	http.HandleFunc("/healthz", handlers.HandleHealthCheck)
	http.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleAnalyze(w, r, redisClient)
	})
	http.HandleFunc("/drive", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleDriveSession(w, r, redisClient)
	})

	// Set up signal handling
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverExit := make(chan struct{})

	// Start HTTP server in a goroutine
	go func() {
		port := ":" + os.Getenv("PORT")
		if port == ":" {
			port = ":8080"
		}
		zap.L().Info("Starting server", zap.String("port", port))
		if err := http.ListenAndServe(port, nil); err != nil {
			zap.L().Error("HTTP server exited", zap.Error(err))
		}
		close(serverExit)
	}()

	// On termination, close all connections and shut down the server
	select {
	case <-stop:
		zap.L().Info("Shutting down server...")
	case <-serverExit:
		zap.L().Info("Server exited unexpectedly...")
	}

	zap.L().Info("Server shut down gracefully")
}
