package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shivavenkatesh/vettore/pkg/client"
	"github.com/shivavenkatesh/vettore/pkg/types"
)

var embedCmd = &cobra.Command{
	Use:   "embed <text>",
	Short: "Embed a text through a running server",
	Long: `Request the embedding of a text from a running server and print it as JSON.

Examples:
  vettore embed "Il gatto dorme"
  vettore embed --server http://embeddings:5001 "hello world"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEmbed,
}

func runEmbed(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	embedding, err := newClient().Embed(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}

	return printJSON(cmd.OutOrStdout(), embedding)
}

var (
	similarityQuery string
	similaritySort  bool
	similarityJSON  bool
)

var similarityCmd = &cobra.Command{
	Use:   "similarity --query <query> <text>...",
	Short: "Score texts against a query",
	Long: `Compute the cosine similarity between a query and each candidate text.

Scores are printed in argument order, or ranked highest first with --sort.

Examples:
  vettore similarity --query gatto cat dog pizza
  vettore similarity -q "pasta al pomodoro" spaghetti risotto sushi --sort`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSimilarity,
}

func init() {
	similarityCmd.Flags().StringVarP(&similarityQuery, "query", "q", "", "Query text (required)")
	similarityCmd.Flags().BoolVar(&similaritySort, "sort", false, "Rank results by score, highest first")
	similarityCmd.Flags().BoolVar(&similarityJSON, "json", false, "Output as JSON")
	similarityCmd.MarkFlagRequired("query")
}

type scoredText struct {
	Text       string  `json:"text"`
	Similarity float32 `json:"similarity"`
}

func runSimilarity(cmd *cobra.Command, args []string) error {
	scores, err := newClient().Similarity(cmd.Context(), similarityQuery, args)
	if err != nil {
		return fmt.Errorf("similarity failed: %w", err)
	}

	results := rankTexts(args, scores, similaritySort)

	if similarityJSON {
		return printJSON(cmd.OutOrStdout(), results)
	}

	out := cmd.OutOrStdout()
	for i, r := range results {
		fmt.Fprintf(out, "%d. [%.4f] %s\n", i+1, r.Similarity, r.Text)
	}
	return nil
}

// rankTexts pairs texts with scores, optionally sorted highest first.
// Ties keep argument order.
func rankTexts(texts []string, scores []float32, ranked bool) []scoredText {
	results := make([]scoredText, len(texts))
	for i := range texts {
		results[i] = scoredText{Text: texts[i], Similarity: scores[i]}
	}
	if ranked {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Similarity > results[j].Similarity
		})
	}
	return results
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that a server is up",
	Long: `Query /health on a running server. Exits 0 when the server reports ok.

Examples:
  vettore health
  vettore health --server http://embeddings:5001`,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	health, err := newClient().Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("server unavailable: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Status:     %s\n", health.Status)
	fmt.Fprintf(out, "Model:      %s\n", health.Model)
	if health.Dimensions > 0 {
		fmt.Fprintf(out, "Dimensions: %d\n", health.Dimensions)
	}
	if health.Status != types.StatusOK {
		return fmt.Errorf("server reported status %q", health.Status)
	}
	return nil
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server statistics",
	Long: `Show backend and cache statistics of a running server.

Examples:
  vettore stats`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	stats, err := newClient().Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Vettore Statistics")
	fmt.Fprintln(out, "──────────────────")
	fmt.Fprintf(out, "Model:          %s\n", stats.Model)
	fmt.Fprintf(out, "Dimensions:     %d\n", stats.Dimensions)
	fmt.Fprintf(out, "Requests:       %d\n", stats.Requests)
	fmt.Fprintf(out, "Avg latency:    %.2f ms\n", stats.AvgLatencyMs)
	fmt.Fprintf(out, "Cache hits:     %d\n", stats.CacheHits)
	fmt.Fprintf(out, "Cache misses:   %d\n", stats.CacheMisses)
	fmt.Fprintf(out, "Cache hit rate: %.1f%%\n", stats.CacheHitRate)
	fmt.Fprintf(out, "Uptime:         %ds\n", stats.UptimeSeconds)
	return nil
}

func newClient() *client.Client {
	return client.New(serverURL)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
