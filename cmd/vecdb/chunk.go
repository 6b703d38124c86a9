package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecdb/chunk"
	"github.com/hupe1980/vecdb/metadata"
)

type chunkOutput struct {
	File   string        `json:"file"`
	Chunks []chunkRecord `json:"chunks"`
}

type chunkRecord struct {
	Index    int               `json:"index"`
	Start    int               `json:"start"`
	End      int               `json:"end"`
	Text     string            `json:"text"`
	Metadata metadata.Document `json:"metadata,omitempty"`
}

func newChunkCmd(loadConfig configLoader) *cobra.Command {
	var (
		kind    string
		size    int
		overlap int
	)

	cmd := &cobra.Command{
		Use:   "chunk FILE...",
		Short: "Split files into chunks and print them as JSON",
		Args:  cobra.MinimumNArgs(1),
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

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}

				chunks, err := chunk.Split(string(data), strategy)
				if err != nil {
					return err
				}

				out := chunkOutput{File: path, Chunks: make([]chunkRecord, 0, len(chunks))}
				for _, c := range chunks {
					out.Chunks = append(out.Chunks, chunkRecord{
						Index:    c.Index,
						Start:    c.Start,
						End:      c.End,
						Text:     c.Text,
						Metadata: c.Metadata,
					})
				}

				if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			}

			return nil
		},
	}

	addStrategyFlags(cmd, &kind, &size, &overlap)

	return cmd
}
