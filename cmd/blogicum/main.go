// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the Blogicum server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
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

	"github.com/redis/go-redis/v9"

	"blogicum/internal/auth"
	"blogicum/internal/blog"
	"blogicum/internal/cache"
	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/handlers"
	"blogicum/internal/mail"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/render"
	"blogicum/internal/router"
	"blogicum/internal/session"
	"blogicum/internal/storage"
	"blogicum/internal/store"
	"blogicum/internal/store/memory"
)

// Sign-in attempts allowed per client IP and window.
const (
	authLimit  = 10
	authWindow = time.Minute
)

func main() {
	// Structured logger: text output, debug level outside production.
	level := slog.LevelDebug
	if os.Getenv("APP_ENV") == "production" {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Load configuration from environment variables (and .env).
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"storage", cfg.StorageBackend,
	)

	ctx := context.Background()

	// Repositories: PostgreSQL, or process memory for quick local runs.
	deps, accounts, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeStorage()

	// Redis backs sessions and the anonymous page cache.
	secureCookies := !cfg.IsDev()
	var (
		sessions  *session.Store
		pageCache handlers.PageCache
	)
	if cfg.HasRedis() {
		var redisClient *redis.Client
		redisClient, err = cache.ConnectRedis(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		sessions = session.NewStore(redisClient, secureCookies)
		pageCache = cache.NewPageCache(redisClient, cfg.PageCacheTTL)
	} else {
		slog.Warn("redis not configured, sessions kept in memory and page cache disabled")
		sessions = session.NewMemoryStore(secureCookies)
	}

	// S3-compatible object storage for post images (optional).
	storageClient, err := storage.New(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3Bucket, cfg.S3PublicURL,
	)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	var images handlers.ImageStore
	if storageClient != nil {
		images = storageClient
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", storageClient.Bucket())
	} else {
		slog.Warn("s3 storage not configured, image uploads disabled")
	}

	renderer, err := render.New(cfg.IsDev(), storageClient.FileURL)
	if err != nil {
		slog.Error("failed to initialize template renderer", "error", err)
		os.Exit(1)
	}

	svc := blog.NewService(deps)

	limiter := middleware.NewRateLimiter(authLimit, authWindow)
	defer limiter.Stop()

	// Create handler groups with their dependencies.
	blogHandlers := handlers.NewBlog(renderer, svc, sessions, images, pageCache, cfg.TimeZone)
	authHandlers := handlers.NewAuth(renderer, sessions, accounts,
		auth.NewResetTokens(cfg.Secret, auth.DefaultResetTTL),
		mail.LogSender{Logger: logger},
		cfg.BaseURL,
	)

	r := router.New(sessions, blogHandlers, authHandlers, limiter, secureCookies)

	// ReadTimeout leaves room for image uploads.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// openStorage builds the repositories for the configured backend. The
// returned func releases them.
func openStorage(ctx context.Context, cfg *config.Config) (blog.Deps, handlers.Accounts, func(), error) {
	if cfg.StorageBackend == config.BackendMemory {
		st := memory.New()
		if cfg.Seed {
			hash, err := auth.HashPassword(database.SeedPassword)
			if err != nil {
				return blog.Deps{}, nil, nil, fmt.Errorf("seed hash: %w", err)
			}
			demo := &models.User{
				Username:     database.SeedUsername,
				Email:        database.SeedEmail,
				FirstName:    "Demo",
				LastName:     "Author",
				PasswordHash: hash,
			}
			if err := memory.Seed(ctx, st, demo); err != nil {
				return blog.Deps{}, nil, nil, err
			}
			slog.Info("memory store seeded with demo data",
				"username", database.SeedUsername,
				"password", database.SeedPassword,
			)
		}

		users := st.Users()
		return blog.Deps{
			Posts:      st.Posts(),
			Categories: st.Categories(),
			Locations:  st.Locations(),
			Comments:   st.Comments(),
			Users:      users,
		}, users, func() {}, nil
	}

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		return blog.Deps{}, nil, nil, fmt.Errorf("connect: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return blog.Deps{}, nil, nil, fmt.Errorf("migrate: %w", err)
	}
	if cfg.Seed {
		if err := database.Seed(db); err != nil {
			db.Close()
			return blog.Deps{}, nil, nil, fmt.Errorf("seed: %w", err)
		}
	}

	users := store.NewUserStore(db)
	return blog.Deps{
		Posts:      store.NewPostStore(db),
		Categories: store.NewCategoryStore(db),
		Locations:  store.NewLocationStore(db),
		Comments:   store.NewCommentStore(db),
		Users:      users,
	}, users, func() { db.Close() }, nil
}
