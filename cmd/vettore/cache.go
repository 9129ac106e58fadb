package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shivavenkatesh/vettore/internal/store/sqlite"
)

var cacheDBPath string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the persistent embedding cache",
	Long: `Inspect and maintain the SQLite embedding cache used by "serve --cache-db".

The database path comes from --db, or cache.db_path / VETTORE_CACHE_DB.

Examples:
  vettore cache stats --db ~/.vettore/cache.db
  vettore cache compact`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show persistent cache statistics",
	RunE:  runCacheStats,
}

var cacheCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Reclaim unused space in the cache database",
	RunE:  runCacheCompact,
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheDBPath, "db", "", "Path to the SQLite cache database")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheCompactCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCacheStore(cmd *cobra.Command) (*sqlite.Store, error) {
	path := cacheDBPath
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		path = cfg.Cache.DBPath
	}
	if path == "" {
		return nil, errors.New("no cache database configured (use --db or cache.db_path)")
	}

	st, err := sqlite.New(sqlite.Config{Path: path})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return st, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	st, err := openCacheStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get cache stats: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Embeddings:   %d\n", stats.Entries)
	fmt.Fprintf(out, "Models:       %d\n", stats.Models)
	fmt.Fprintf(out, "Storage size: %.2f MB\n", float64(stats.StorageBytes)/1024/1024)
	return nil
}

func runCacheCompact(cmd *cobra.Command, args []string) error {
	st, err := openCacheStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Compact(cmd.Context()); err != nil {
		return fmt.Errorf("compact failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cache compacted")
	return nil
}
