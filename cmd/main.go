package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/cue-club/brackets"
	"github.com/Dosada05/cue-club/cache"
	"github.com/Dosada05/cue-club/config"
	"github.com/Dosada05/cue-club/db"
	"github.com/Dosada05/cue-club/handlers"
	"github.com/Dosada05/cue-club/metrics"
	"github.com/Dosada05/cue-club/realtime"
	"github.com/Dosada05/cue-club/repositories"
	api "github.com/Dosada05/cue-club/routes"
	"github.com/Dosada05/cue-club/services"
	"github.com/Dosada05/cue-club/storage"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Хранилище сеток: Postgres, если задан DATABASE_URL, иначе память
	var bracketRepo repositories.BracketRepository
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}()
		if err := db.EnsureSchema(ctx, dbConn); err != nil {
			logger.Error("failed to prepare database schema", slog.Any("error", err))
			os.Exit(1)
		}
		bracketRepo = repositories.NewPostgresBracketRepository(dbConn)
		logger.Info("database connection established")
	} else {
		bracketRepo = repositories.NewMemoryBracketRepository()
		logger.Warn("DATABASE_URL is not set, brackets are kept in memory only")
	}

	if cfg.Redis.Enabled() {
		redisStore, err := cache.Connect(ctx, cfg.Redis, "cueclub:")
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisStore.Close()
		bracketRepo = repositories.NewCachedBracketRepository(bracketRepo, redisStore, cfg.BracketTTL, logger)
		logger.Info("redis bracket cache enabled", slog.Duration("ttl", cfg.BracketTTL))
	}

	recorder := metrics.NewRecorder()

	// Хаб WebSocket
	wsHub := realtime.NewHub()
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	serviceOpts := []services.BracketServiceOption{
		services.WithMetrics(recorder),
		services.WithRevealScheduler(brackets.NewRevealScheduler(cfg.Reveal)),
	}

	// Архив итоговых сеток в Cloudflare R2
	if cfg.R2.Enabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, cfg.R2)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		serviceOpts = append(serviceOpts, services.WithArchiver(storage.NewBracketArchiver(uploader)))
		logger.Info("Cloudflare R2 archive enabled", slog.String("bucket", cfg.R2.BucketName))
	}

	authService := services.NewAuthService(cfg.StaffPasswordHash, cfg.JWTSecretKey)
	bracketService := services.NewBracketService(bracketRepo, wsHub, logger, serviceOpts...)
	defer bracketService.Close()

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Dependencies{
		AuthHandler:      handlers.NewAuthHandler(authService),
		BracketHandler:   handlers.NewBracketHandler(bracketService),
		WebSocketHandler: handlers.NewWebSocketHandler(wsHub, bracketService, cfg.CORSOrigins),
		TokenParser:      authService,
		Metrics:          recorder.Handler(),
		AllowedOrigins:   cfg.CORSOrigins,
		Logger:           logger,
	})
	logger.Info("Routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancelShutdown()

		// Останавливаем показы до закрытия соединений
		bracketService.Close()

		logger.Info("shutting down server", slog.Duration("timeout", cfg.ShutdownGrace))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	stop()
	logger.Info("application exited")
}
