// Package commands implements the custodiactl maintenance CLI.
package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/custodia/internal/application"
	"github.com/JonMunkholm/custodia/internal/config"
	"github.com/JonMunkholm/custodia/internal/core"
	"github.com/JonMunkholm/custodia/internal/logging"
)

// app is opened by the root pre-run hook and closed by the post-run hook.
var app *application.App

// Root builds the command tree. Each call returns a fresh tree.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "custodiactl",
		Short: "Maintain the custodian registry from the command line",
		Long: `custodiactl runs registry maintenance against the configured store.

It reads the same environment (and .env file) as the server.

Examples:
  custodiactl seed
  custodiactl schema > schema.sql
  custodiactl test-connection --host td.example --user dbc --password secret
  custodiactl extract --host td.example --user dbc --password secret --mode full
  custodiactl jobs ls
  custodiactl jobs logs 42
  custodiactl import custodians people.csv --delimiter ';'
  custodiactl purge teradata`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			app, err = application.New(cmd.Context(), cfg)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if app != nil {
				app.Close()
				app = nil
			}
		},
	}

	root.AddCommand(seedCmd())
	root.AddCommand(schemaCmd())
	root.AddCommand(testConnectionCmd())
	root.AddCommand(extractCmd())
	root.AddCommand(jobsCmd())
	root.AddCommand(importCmd())
	root.AddCommand(purgeCmd())
	return root
}

// actorContext marks CLI mutations in the audit log.
func actorContext(cmd *cobra.Command) *cobra.Command {
	cmd.SetContext(core.ContextWithActor(cmd.Context(), "custodiactl"))
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
