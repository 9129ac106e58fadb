package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shivavenkatesh/vettore/internal/config"
	"github.com/shivavenkatesh/vettore/internal/server"
)

const shutdownTimeout = 5 * time.Second

var (
	serveHost       string
	servePort       int
	serveBackend    string
	serveModel      string
	serveBackendURL string
	serveCacheSize  int
	serveCacheDB    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Load the embedding model and start the HTTP server.

The model is loaded once before the listener is bound; if loading fails the
process exits with a non-zero status.

Endpoints:
  GET  /health      - Readiness and model identifier
  POST /embed       - Embedding of {"text": ...}
  POST /similarity  - Cosine similarity of {"query": ..., "texts": [...]}
  GET  /stats       - Backend and cache statistics

Examples:
  vettore serve
  vettore serve --port 8080
  vettore serve --backend ollama --model nomic-embed-text
  vettore serve --cache-size 10000 --cache-db ~/.vettore/cache.db`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 5001, "Port to listen on")
	serveCmd.Flags().StringVar(&serveBackend, "backend", config.BackendTEI, "Embedding backend: tei, ollama, openai, gemini")
	serveCmd.Flags().StringVarP(&serveModel, "model", "m", "", "Model identifier (default depends on backend, "+config.DefaultModel+" for tei)")
	serveCmd.Flags().StringVar(&serveBackendURL, "backend-url", "", "Backend base URL")
	serveCmd.Flags().IntVar(&serveCacheSize, "cache-size", 0, "In-memory embedding cache entries (0 disables)")
	serveCmd.Flags().StringVar(&serveCacheDB, "cache-db", "", "SQLite embedding cache file (empty disables)")
}

// applyServeFlags overrides config values with flags the user actually set
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = serveHost
	}
	if flags.Changed("port") {
		cfg.Server.Port = servePort
	}
	if flags.Changed("backend") {
		cfg.Embeddings.Backend = serveBackend
	}
	if flags.Changed("model") {
		cfg.Embeddings.Model = serveModel
	}
	if flags.Changed("backend-url") {
		cfg.Embeddings.URL = serveBackendURL
	}
	if flags.Changed("cache-size") {
		cfg.Cache.Size = serveCacheSize
	}
	if flags.Changed("cache-db") {
		cfg.Cache.DBPath = serveCacheDB
	}
}

// serveConfig layers flags over the loaded config and resolves the
// backend-dependent defaults before validating
func serveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	applyServeFlags(cmd, cfg)
	cfg.ResolveProviderDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := serveConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := initService(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		return err
	}
	defer svc.Close()

	srv := server.New(svc, serverConfig(cfg), log)
	log.Info("starting server", "addr", cfg.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}
