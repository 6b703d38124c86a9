package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newDocumentCmd(loadConfig configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "document KEY",
		Short: "Print an archived document from the configured blob store",
		Long: `Print the raw bytes archived for an ingested document. KEY is the
archive_key reported by the ingest command.`,
		Args: cobra.ExactArgs(1),
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

			data, err := db.Document(ctx, args[0])
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}
}
