// Package sqlite provides a SQLite-backed embedding store
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shivavenkatesh/vettore/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements store.EmbeddingStore on a single SQLite file
type Store struct {
	db   *sql.DB
	path string
}

// Config configures the SQLite store
type Config struct {
	Path string // Path to database file
}

// New opens (creating if needed) the store at cfg.Path
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -16000",       // 16MB cache
		"PRAGMA temp_store = MEMORY",       // temp tables in memory
		"PRAGMA auto_vacuum = INCREMENTAL", // gradual space reclaim
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{
		db:   db,
		path: cfg.Path,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		model TEXT NOT NULL,
		content_key TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		embedding BLOB NOT NULL, -- little-endian float32 array
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (model, content_key)
	);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Get retrieves an embedding by model and content key
func (s *Store) Get(ctx context.Context, model, key string) ([]float32, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT embedding FROM embeddings WHERE model = ? AND content_key = ?",
		model, key,
	).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query embedding: %w", err)
	}

	embedding, err := decodeEmbedding(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedding %s: %w", key, err)
	}
	return embedding, nil
}

// Put inserts or replaces an embedding
func (s *Store) Put(ctx context.Context, model, key string, embedding []float32) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO embeddings (model, content_key, dimensions, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, model, key, len(embedding), encodeEmbedding(embedding), time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert embedding: %w", err)
	}
	return nil
}

// Count returns the number of stored embeddings, optionally for one model
func (s *Store) Count(ctx context.Context, model string) (int, error) {
	var count int
	var err error

	if model == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings WHERE model = ?", model).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}

	return count, nil
}

// Stats returns storage statistics
func (s *Store) Stats(ctx context.Context) (*store.Stats, error) {
	stats := &store.Stats{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&stats.Entries); err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT model) FROM embeddings").Scan(&stats.Models); err != nil {
		return nil, fmt.Errorf("failed to get model count: %w", err)
	}
	if info, err := os.Stat(s.path); err == nil {
		stats.StorageBytes = info.Size()
	}

	return stats, nil
}

// Compact optimizes storage
func (s *Store) Compact(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases resources
func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.EmbeddingStore = (*Store)(nil)
