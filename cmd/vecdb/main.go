// Command vecdb chunks, embeds and searches documents with an in-process
// vector database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecdb/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "vecdb",
		Short:        "In-memory vector database for document search",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (YAML)")

	loadConfig := func(cmd *cobra.Command) (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}

		for _, warning := range cfg.Validate() {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", warning)
		}

		return cfg, nil
	}

	rootCmd.AddCommand(
		newIngestCmd(loadConfig),
		newChunkCmd(loadConfig),
		newCollectionsCmd(loadConfig),
		newDocumentCmd(loadConfig),
	)

	return rootCmd
}

type configLoader func(cmd *cobra.Command) (*config.Config, error)
