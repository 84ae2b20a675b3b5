package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jwebster45206/word-quest/internal/config"
	"github.com/jwebster45206/word-quest/internal/handlers"
	"github.com/jwebster45206/word-quest/internal/logger"
	"github.com/jwebster45206/word-quest/internal/storage"
	"github.com/jwebster45206/word-quest/pkg/dice"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Word Quest API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend,
		"data_dir", cfg.DataDir)

	kv, err := storage.Open(storage.Options{
		Backend:    cfg.StorageBackend,
		RedisURL:   cfg.RedisURL,
		SQLitePath: cfg.SQLitePath,
		TTL:        cfg.ProgressTTL,
	}, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if redisKV, ok := kv.(*storage.RedisKV); ok {
		if err := redisKV.WaitForConnection(storageCtx, 30, 2*time.Second); err != nil {
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
	} else if err := kv.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	library, err := storage.LoadLibrary(cfg.DataDir, kv, log)
	if err != nil {
		log.Error("Failed to load world catalog", "error", err)
		os.Exit(1)
	}
	progress := storage.NewProgressStore(kv, log)
	roller := dice.NewRandomRoller(time.Now().UnixNano())

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(kv, log))

	storiesHandler := handlers.NewStoriesHandler(library, log)
	mux.Handle("/v1/stories", storiesHandler)

	sessionHandler := handlers.NewSessionHandler(library, progress, roller, cfg.DiceFlourishes, log)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.RequestLogger(log, mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := kv.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
