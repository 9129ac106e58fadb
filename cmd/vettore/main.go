// Vettore - a multilingual text embedding service
// Serves sentence embeddings and cosine similarity over HTTP
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	serverURL  string
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vettore",
	Short: "Multilingual text embedding service",
	Long: `Vettore turns text into fixed-length embedding vectors using a pretrained
multilingual sentence-embedding model (sentence-transformers/LaBSE by default)
and ranks candidate texts by cosine similarity to a query.

The model runs behind an inference backend: text-embeddings-inference (TEI),
Ollama, OpenAI or Gemini. Vettore validates requests, talks to the backend
and computes similarities.

Examples:
  # Start the server on 0.0.0.0:5001
  vettore serve

  # Embed a sentence through a running server
  vettore embed "Il gatto dorme sul divano"

  # Rank candidates against a query
  vettore similarity --query gatto cat dog pizza --sort

  # Embed one text per line into JSONL
  vettore embed-file materials.txt --out embeddings.jsonl`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to .env file (default: ./.env if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json or text")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", defaultServerURL(), "Server URL for client commands")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(similarityCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(embedFileCmd)
}

func defaultServerURL() string {
	if url := os.Getenv("VETTORE_URL"); url != "" {
		return url
	}
	return "http://localhost:5001"
}
