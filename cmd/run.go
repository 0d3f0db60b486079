package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aleksandrbar00/kulai-app/internal/api"
	"github.com/aleksandrbar00/kulai-app/internal/app"
	"github.com/aleksandrbar00/kulai-app/internal/auth"
	"github.com/aleksandrbar00/kulai-app/internal/cache"
	"github.com/aleksandrbar00/kulai-app/internal/config"
	"github.com/aleksandrbar00/kulai-app/internal/continuation"
	"github.com/aleksandrbar00/kulai-app/internal/lesson"
	"github.com/aleksandrbar00/kulai-app/internal/logging"
)

// runApp loads configuration, wires the services, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closer, err := logging.Setup(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer closer.Close()

	// The cache is an accelerator, not a requirement: a broken cache file
	// degrades to no resume hints and no offline bank.
	var sessions *cache.Sessions
	cacheStore, err := cache.Open(cfg.CachePath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.CachePath).Msg("open cache, continuing without it")
		fmt.Fprintln(os.Stderr, "Warning: local cache unavailable; resume and offline mode are disabled.")
	} else {
		defer cacheStore.Close()
		sessions = cacheStore.Sessions()
	}

	client := buildClient(cfg, log)

	var authority lesson.Authority
	if client != nil {
		authority = client
	}
	var lessonCache lesson.Cache
	if sessions != nil {
		lessonCache = sessions
	}
	store := lesson.NewStore(authority, lessonCache, log)

	var controller *continuation.Controller
	if client != nil {
		var clearer continuation.CurrentClearer
		if sessions != nil {
			clearer = sessions
		}
		controller = continuation.New(client, clearer, cfg.HistoryPageSize)
	}

	log.Info().Bool("remote", client != nil).Msg("starting")
	return app.Run(app.Options{
		Store:      store,
		Client:     client,
		Sessions:   sessions,
		Controller: controller,
		PageSize:   cfg.HistoryPageSize,
		Logger:     log,
	})
}

// loadConfig merges flags over the file/env configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if s, _ := cmd.Flags().GetString("server"); s != "" {
		cfg.ServerURL = s
	}
	if p, _ := cmd.Flags().GetString("cache"); p != "" {
		if err := config.EnsureDir(p); err != nil {
			return nil, err
		}
		cfg.CachePath = p
	}
	return cfg, nil
}

// buildClient constructs the remote client with token refresh, or nil in
// offline mode. The refresh closure reaches back into the client it guards;
// the binding happens before any request can fire.
func buildClient(cfg *config.Config, log zerolog.Logger) *api.Client {
	if cfg.ServerURL == "" {
		return nil
	}

	tokenStore := auth.NewStore(cfg.TokenPath)

	var client *api.Client
	source := auth.NewSource(tokenStore, func(ctx context.Context, refreshToken string) (auth.Tokens, error) {
		return client.RefreshTokens(ctx, refreshToken)
	})

	client = api.New(cfg.ServerURL, source,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(log),
	)
	return client
}
