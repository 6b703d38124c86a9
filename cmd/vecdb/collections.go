package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

type collectionOutput struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Dimension   int       `json:"dimension"`
	Metric      string    `json:"metric"`
	RecordCount int       `json:"record_count"`
	ContentHash string    `json:"content_hash,omitempty"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

func newCollectionsCmd(loadConfig configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List collections known to the configured ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			db, _, cleanup, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}

			defer func() {
				closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
				defer cancel()

				_ = db.Close(closeCtx)
				_ = cleanup()
			}()

			collections, err := db.ListCollections(ctx)
			if err != nil {
				return err
			}

			out := make([]collectionOutput, 0, len(collections))
			for _, c := range collections {
				out = append(out, collectionOutput{
					ID:          c.ID,
					Name:        c.Name,
					Description: c.Description,
					Dimension:   c.Dimension,
					Metric:      c.Metric.String(),
					RecordCount: c.RecordCount,
					ContentHash: c.ContentHash,
					Created:     c.Created,
					Updated:     c.Updated,
				})
			}

			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}
