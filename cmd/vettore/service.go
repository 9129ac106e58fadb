package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shivavenkatesh/vettore/internal/config"
	"github.com/shivavenkatesh/vettore/internal/embeddings"
	"github.com/shivavenkatesh/vettore/internal/logger"
	"github.com/shivavenkatesh/vettore/internal/server"
	"github.com/shivavenkatesh/vettore/internal/service"
)

// loadConfig resolves configuration and applies the global flags on top
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	return cfg, nil
}

// newLogger builds the process logger from cfg
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logger.New(logger.Config{
		Level:  level,
		Format: cfg.Log.Format,
	}), nil
}

// initService creates the embedder, loads the model and wraps it in the service.
// Any error here is fatal for serve.
func initService(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.Service, error) {
	embedder, err := embeddings.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	log.Info("loading model",
		"backend", cfg.Embeddings.Backend,
		"model", embedder.Model(),
	)
	if err := embeddings.Load(ctx, embedder); err != nil {
		embedder.Close()
		return nil, err
	}
	log.Info("model loaded",
		"model", embedder.Model(),
		"dimensions", embedder.Dimensions(),
	)

	if verbose {
		log.Debug("cache configuration",
			"memory_entries", cfg.Cache.Size,
			"db_path", cfg.Cache.DBPath,
		)
	}

	return service.New(embedder, service.Config{
		MaxTextLength: cfg.Limits.MaxTextLength,
	}), nil
}

// serverConfig maps the server section of cfg onto server.Config
func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		CORSOrigin:   cfg.Server.CORSOrigin,
	}
}
