package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// maxLineBytes bounds a single input line
const maxLineBytes = 4 << 20

var (
	embedFileOut   string
	embedFileForce bool
)

var embedFileCmd = &cobra.Command{
	Use:   "embed-file <path>",
	Short: "Embed every record of a file",
	Long: `Embed each record of a file through a running server and write JSONL
{"id": ..., "embedding": [...]} lines.

Input is either plain text (one text per line, id = line number) or JSONL
with {"id": ..., "text": ...} objects. JSONL records that already carry an
"embedding" are skipped unless --force is given. Use "-" to read stdin.

Failures are reported on stderr and do not stop the run.

Examples:
  vettore embed-file materials.txt
  vettore embed-file materials.jsonl --out embeddings.jsonl
  cat materials.jsonl | vettore embed-file - --force`,
	Args: cobra.ExactArgs(1),
	RunE: runEmbedFile,
}

func init() {
	embedFileCmd.Flags().StringVarP(&embedFileOut, "out", "o", "", "Output file (default: stdout)")
	embedFileCmd.Flags().BoolVar(&embedFileForce, "force", false, "Re-embed records that already have an embedding")
}

// textEmbedder is the part of the client embed-file needs
type textEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// inputRecord is one line of JSONL input
type inputRecord struct {
	ID        json.RawMessage `json:"id"`
	Text      *string         `json:"text"`
	Embedding json.RawMessage `json:"embedding"`
}

// outputRecord is one line of JSONL output
type outputRecord struct {
	ID        json.RawMessage `json:"id"`
	Embedding []float32       `json:"embedding"`
}

// embedFileResult summarizes a run
type embedFileResult struct {
	Embedded int
	Skipped  int
	Failed   int
}

func runEmbedFile(cmd *cobra.Command, args []string) error {
	var in io.Reader
	if args[0] == "-" {
		in = cmd.InOrStdin()
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	errOut := cmd.ErrOrStderr()
	var res embedFileResult
	err := writeOutput(cmd.OutOrStdout(), embedFileOut, func(out io.Writer) error {
		var err error
		res, err = embedRecords(cmd.Context(), newClient(), in, out, errOut, embedFileForce)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(errOut, "Done: %d embedded, %d skipped, %d failed\n", res.Embedded, res.Skipped, res.Failed)
	return nil
}

// writeOutput runs write against the file at path, or stdout when path is
// empty. A failed close of the file is reported as an error.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) (err error) {
	if path == "" {
		return write(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
	}()
	return write(f)
}

// readLine returns the next line without its line ending. A line longer
// than limit is drained and reported with tooLong set. io.EOF is returned
// once no input remains.
func readLine(r *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return nil, false, err
		}
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

// embedRecords embeds every record read from in and writes JSONL to out.
// Per-record failures, oversized lines included, go to errOut; only I/O
// errors abort the run.
func embedRecords(ctx context.Context, emb textEmbedder, in io.Reader, out, errOut io.Writer, force bool) (embedFileResult, error) {
	var res embedFileResult

	r := bufio.NewReaderSize(in, 64*1024)

	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)

	lineNo := 0
	for {
		raw, tooLong, err := readLine(r, maxLineBytes)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			w.Flush()
			return res, fmt.Errorf("failed to read input: %w", err)
		}
		lineNo++
		if tooLong {
			fmt.Fprintf(errOut, "line %d: exceeds %d bytes\n", lineNo, maxLineBytes)
			res.Failed++
			continue
		}

		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}

		id := json.RawMessage(strconv.Itoa(lineNo))
		text := line

		if strings.HasPrefix(line, "{") {
			var rec inputRecord
			if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.Text == nil {
				fmt.Fprintf(errOut, "line %d: invalid record, expected {\"id\", \"text\"}\n", lineNo)
				res.Failed++
				continue
			}
			if len(rec.ID) > 0 && string(rec.ID) != "null" {
				id = rec.ID
			}
			if !force && len(rec.Embedding) > 0 && string(rec.Embedding) != "null" {
				res.Skipped++
				continue
			}
			text = *rec.Text
		}

		if err := ctx.Err(); err != nil {
			w.Flush()
			return res, err
		}

		embedding, err := emb.Embed(ctx, text)
		if err != nil {
			fmt.Fprintf(errOut, "record %s: %v\n", id, err)
			res.Failed++
			continue
		}

		if err := enc.Encode(outputRecord{ID: id, Embedding: embedding}); err != nil {
			return res, fmt.Errorf("failed to write output: %w", err)
		}
		res.Embedded++
	}

	if err := w.Flush(); err != nil {
		return res, fmt.Errorf("failed to write output: %w", err)
	}
	return res, nil
}
