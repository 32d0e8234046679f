// Package cmd implements the mnemo CLI: ingest documents, store memories,
// and run retrieval against the local or managed store.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// Execute runs the root command.
func Execute() {
	root := &cobra.Command{
		Use:   "mnemo",
		Short: "Personal knowledge assistant retrieval engine",
		Long: `mnemo indexes your documents and extracted memories, then answers
retrieval queries with a budgeted, deduplicated, attention-arranged context
block ready for a generator.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.mnemo/config.yaml)")

	root.AddCommand(ingestCmd())
	root.AddCommand(askCmd())
	root.AddCommand(rememberCmd())
	root.AddCommand(memoriesCmd())
	root.AddCommand(doctorCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
