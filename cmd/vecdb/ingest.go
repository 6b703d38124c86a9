package main

import (
	"bufio"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecdb"
	"github.com/hupe1980/vecdb/ingest"
	"github.com/hupe1980/vecdb/internal/config"
	"github.com/hupe1980/vecdb/metadata"
)

const closeTimeout = 10 * time.Second

type ingestOutput struct {
	File       string         `json:"file"`
	DocumentID string         `json:"document_id"`
	Chunks     int            `json:"chunks"`
	Embedded   int            `json:"embedded"`
	Failures   map[int]string `json:"failures,omitempty"`
	ArchiveKey string         `json:"archive_key,omitempty"`
}

type queryOutput struct {
	Query   string        `json:"query"`
	Results []queryResult `json:"results"`
}

type queryResult struct {
	RecordID string  `json:"record_id"`
	Score    float32 `json:"score"`
	File     string  `json:"file,omitempty"`
	Text     string  `json:"text,omitempty"`
}

func newIngestCmd(loadConfig configLoader) *cobra.Command {
	var (
		kind       string
		size       int
		overlap    int
		collection string
		k          int
		noQuery    bool
		meta       []string
		where      []string
	)

	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Ingest files, then answer queries read from stdin",
		Long: `Ingest chunks and embeds every file into a new collection. Because the
index lives only in this process, queries are then read from stdin, one
per line, and answered as JSON until EOF.

Examples:
  vecdb ingest --collection notes README.md docs/*.md
  echo "how do I configure the ledger" | vecdb ingest --k 3 docs/*.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			applyIngestDefaults(cmd, cfg, &kind, &size, &overlap)

			strategy, err := strategyFromFlags(kind, size, overlap)
			if err != nil {
				return err
			}

			docMeta, err := metadata.ParseAssignments(meta)
			if err != nil {
				return err
			}

			filters, err := parseFilters(where)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			db, embedder, cleanup, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}

			defer func() {
				closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
				defer cancel()

				_ = db.Close(closeCtx)
				_ = cleanup()
			}()

			c, err := db.CreateCollection(ctx, collection, vecdb.WithDescription("ingested by vecdb"))
			if err != nil {
				return err
			}

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}

				res, err := db.IngestDocument(ctx, c.ID, vecdb.Document{
					Filename: filepath.Base(path),
					MimeType: detectMimeType(path, data),
					Raw:      data,
				}, strategy, func(o *vecdb.IngestOptions) {
					o.Metadata = docMeta
				})
				if err != nil {
					return fmt.Errorf("ingesting %s: %w", path, err)
				}

				if err := writeJSON(cmd.OutOrStdout(), ingestOutput{
					File:       path,
					DocumentID: res.DocumentID,
					Chunks:     res.ChunkCount,
					Embedded:   res.EmbeddedCount,
					Failures:   res.Failures,
					ArchiveKey: res.ArchiveKey,
				}); err != nil {
					return err
				}
			}

			if noQuery {
				return nil
			}

			return answerQueries(ctx, cmd, db.Query(c.ID, nil).KNN(k).Where(filters...), embedder)
		},
	}

	addStrategyFlags(cmd, &kind, &size, &overlap)
	cmd.Flags().StringVar(&collection, "collection", "documents", "Collection name")
	cmd.Flags().IntVar(&k, "k", 5, "Number of results per query")
	cmd.Flags().BoolVar(&noQuery, "no-query", false, "Exit after ingesting instead of reading queries")
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "Metadata key=value attached to every chunk (repeatable)")
	cmd.Flags().StringArrayVar(&where, "where", nil, "Only return chunks whose metadata key equals value (repeatable)")

	return cmd
}

type queryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

func parseFilters(pairs []string) ([]metadata.Filter, error) {
	filters := make([]metadata.Filter, 0, len(pairs))

	for _, p := range pairs {
		key, value, err := metadata.ParseAssignment(p)
		if err != nil {
			return nil, err
		}

		filters = append(filters, metadata.Eq(key, value))
	}

	return filters, nil
}

// answerQueries embeds every stdin line and runs it through base, which
// carries the collection, k and filters.
func answerQueries(ctx context.Context, cmd *cobra.Command, base *vecdb.QueryBuilder, embedder queryEmbedder) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())

	for scanner.Scan() {
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}

		vec, err := embedder.Embed(ctx, query)
		if err != nil {
			return fmt.Errorf("embedding query: %w", err)
		}

		hits, err := base.Vector(vec).Execute(ctx)
		if err != nil {
			return err
		}

		out := queryOutput{Query: query, Results: make([]queryResult, 0, len(hits))}
		for _, h := range hits {
			r := queryResult{RecordID: h.RecordID, Score: h.Score}
			if v, ok := h.Metadata[ingest.MetaFilename]; ok {
				r.File, _ = v.AsString()
			}
			if v, ok := h.Metadata[ingest.MetaText]; ok {
				r.Text, _ = v.AsString()
			}

			out.Results = append(out.Results, r)
		}

		if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func detectMimeType(path string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}

	if utf8.Valid(data) {
		return "text/plain"
	}

	return "application/octet-stream"
}

func addStrategyFlags(cmd *cobra.Command, kind *string, size, overlap *int) {
	cmd.Flags().StringVar(kind, "strategy", "sentence", "Chunking strategy: fixed, sentence, paragraph or semantic")
	cmd.Flags().IntVar(size, "size", 512, "Chunk size in characters")
	cmd.Flags().IntVar(overlap, "overlap", 64, "Chunk overlap in characters")
}

// applyIngestDefaults fills strategy flags the user did not set from cfg.
func applyIngestDefaults(cmd *cobra.Command, cfg *config.Config, kind *string, size, overlap *int) {
	if !cmd.Flags().Changed("strategy") && cfg.Ingest.Strategy != "" {
		*kind = cfg.Ingest.Strategy
	}

	if !cmd.Flags().Changed("size") && cfg.Ingest.ChunkSize > 0 {
		*size = cfg.Ingest.ChunkSize
	}

	if !cmd.Flags().Changed("overlap") {
		*overlap = cfg.Ingest.Overlap
	}
}
