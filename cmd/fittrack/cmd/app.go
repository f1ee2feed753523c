package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fittrack/internal/api"
	"fittrack/internal/config"
	"fittrack/internal/credstore"
	"fittrack/internal/histcache"
	"fittrack/internal/session"
)

// app is the composition root shared by all commands: config, logger,
// API client, credential store, and the session manager, initialized
// and settled into a terminal state.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *api.Client
	store   *credstore.Store
	session *session.Manager
}

// loadApp builds the application graph and runs the one-time session
// initialization. Every command goes through here, matching the mobile
// app's validate-on-launch behavior.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if dataDirFlag != "" {
		cfg.Storage.DataDir = dataDirFlag
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Debug("loaded config", "file", configFile)
	}

	client := api.NewClient(
		api.WithBaseURL(cfg.API.BaseURL),
		api.WithTimeout(cfg.API.RequestTimeoutDuration()),
		api.WithLogger(logger),
		api.WithUserAgent("fittrack-cli/"+Version),
	)

	store := credstore.NewStore(cfg.Storage.DataDir, logger)

	mgr := session.NewManager(store, client,
		session.WithInitTimeout(cfg.API.InitTimeoutDuration()),
		session.WithAuthTimeout(cfg.API.AuthTimeoutDuration()),
		session.WithLogger(logger),
	)
	if err := mgr.Initialize(ctx); err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		store:   store,
		session: mgr,
	}, nil
}

// requireAuth returns the session token or an actionable error when the
// session is not authenticated.
func (a *app) requireAuth() (string, error) {
	if a.session.Status() != session.StatusAuthenticated {
		return "", fmt.Errorf("not signed in; run \"fittrack login\" first")
	}
	return a.session.Token(), nil
}

// openCache opens the local history cache. Failures are logged and
// reported as a nil cache; callers treat that as "no cache".
func (a *app) openCache(ctx context.Context) *histcache.Cache {
	path := filepath.Join(a.cfg.Storage.DataDir, "history.db")
	cache, err := histcache.Open(ctx, path)
	if err != nil {
		a.logger.Warn("history cache unavailable", "path", path, "error", err)
		return nil
	}
	return cache
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
