package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"multichat/internal/auth"
	"multichat/internal/config"
	"multichat/internal/http"
	"multichat/internal/llm"
	"multichat/internal/lock"
	"multichat/internal/metrics"
	"multichat/internal/service"
	"multichat/internal/storage"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	credentialRepo := storage.NewCredentialRepo(db)
	conversationRepo := storage.NewConversationRepo(db)
	messageRepo := storage.NewMessageRepo(db)
	branchRepo := storage.NewBranchRepo(db)
	settingsRepo := storage.NewSettingsRepo(db)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(
		&nethttp.Client{Timeout: cfg.UpstreamTimeout},
		cfg.ProviderBaseURLs,
		llm.ChatParams{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature},
	)
	for _, p := range llmClient.Providers() {
		slog.Debug("Provider registered", "provider", p.ID, "dialect", p.Dialect, "models", len(p.Models))
	}

	// Dispatch lock: Redis when configured so several API instances serialize on the same key
	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() {
			_ = rdb.Close()
		}()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		locker = lock.NewRedis(rdb, cfg.LockTTL)
		slog.Info("Using Redis dispatch lock", "addr", cfg.RedisAddr)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	// Create services
	chatService := service.NewChatService(service.ChatServiceConfig{
		LLM:           llmClient,
		Credentials:   credentialRepo,
		Conversations: conversationRepo,
		Messages:      messageRepo,
		Settings:      settingsRepo,
		Locker:        locker,
		Metrics:       m,
		Timeout:       cfg.UpstreamTimeout,
	})
	conversationService := service.NewConversationService(conversationRepo, messageRepo, branchRepo)
	credentialService := service.NewCredentialService(credentialRepo, llmClient)
	settingsService := service.NewSettingsService(settingsRepo, llmClient)

	// Create router with dependencies
	router := http.NewRouter(&http.Deps{
		ChatService:         chatService,
		ConversationService: conversationService,
		CredentialService:   credentialService,
		SettingsService:     settingsService,
		Tokens:              tokens,
		DB:                  db,
		Metrics:             m,
	})

	addr := ":" + cfg.APIPort
	srv := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Starting API server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down API server")

	// In-flight requests may be waiting on an upstream provider.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.UpstreamTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
