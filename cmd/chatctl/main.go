// Command chatctl drives the chat backend from a terminal against the same database as the API.
package main

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"multichat/internal/auth"
	"multichat/internal/config"
	"multichat/internal/llm"
	"multichat/internal/service"
	"multichat/internal/storage"
)

// app holds the services shared by every command.
type app struct {
	chat          service.ChatService
	conversations service.ConversationService
	credentials   service.CredentialService
	settings      service.SettingsService
	tokens        *auth.TokenService
}

func newApp(db *sql.DB, llmClient *llm.Client, tokens *auth.TokenService, timeout time.Duration) *app {
	credentialRepo := storage.NewCredentialRepo(db)
	conversationRepo := storage.NewConversationRepo(db)
	messageRepo := storage.NewMessageRepo(db)
	settingsRepo := storage.NewSettingsRepo(db)

	return &app{
		chat: service.NewChatService(service.ChatServiceConfig{
			LLM:           llmClient,
			Credentials:   credentialRepo,
			Conversations: conversationRepo,
			Messages:      messageRepo,
			Settings:      settingsRepo,
			Timeout:       timeout,
		}),
		conversations: service.NewConversationService(conversationRepo, messageRepo, storage.NewBranchRepo(db)),
		credentials:   service.NewCredentialService(credentialRepo, llmClient),
		settings:      service.NewSettingsService(settingsRepo, llmClient),
		tokens:        tokens,
	}
}

// openFromConfig builds the app from the environment, like the API server does.
func openFromConfig() (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var handler slog.Handler = slog.NewTextHandler(io.Discard, nil)
	if cfg.LogLevel <= slog.LevelDebug {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})
	}
	slog.SetDefault(slog.New(handler))

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	llmClient := llm.NewClient(
		&nethttp.Client{Timeout: cfg.UpstreamTimeout},
		cfg.ProviderBaseURLs,
		llm.ChatParams{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature},
	)

	cleanup := func() {
		_ = db.Close()
	}
	return newApp(db, llmClient, tokens, cfg.UpstreamTimeout), cleanup, nil
}

func main() {
	cobra.CheckErr(newRootCmd(openFromConfig).Execute())
}
