package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/custodia/internal/connector"
	"github.com/JonMunkholm/custodia/internal/core"
	"github.com/JonMunkholm/custodia/internal/extraction"
)

// connFlags collects the connection settings shared by several commands.
type connFlags struct {
	host, url, database, logmech, user, password, extra string
}

func (f *connFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.host, "host", "", "database host")
	cmd.Flags().StringVar(&f.url, "url", "", "full JDBC URL (overrides --host)")
	cmd.Flags().StringVar(&f.database, "database", "", "DATABASE= parameter")
	cmd.Flags().StringVar(&f.logmech, "logmech", "TD2", "LOGMECH= parameter")
	cmd.Flags().StringVarP(&f.user, "user", "u", "", "username")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "password")
	cmd.Flags().StringVar(&f.extra, "extra", "", "extra comma-separated URL parameters")
}

func (f *connFlags) config() core.JobConfig {
	cfg := core.JobConfig{
		Host:     f.host,
		URL:      f.url,
		Database: f.database,
		ConnType: f.logmech,
		Username: f.user,
		Password: f.password,
		Extra:    f.extra,
	}
	if cfg.URL == "" {
		cfg.URL = connector.BuildJDBCURL(cfg.Host, cfg.Database, cfg.ConnType, cfg.Extra)
	}
	return cfg
}

func testConnectionCmd() *cobra.Command {
	var flags connFlags
	cmd := &cobra.Command{
		Use:   "test-connection",
		Short: "Try every connection strategy and report the outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res := app.Resolver.Test(cmd.Context(), flags.config())
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.OK {
				return errors.New(res.Message)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func extractCmd() *cobra.Command {
	var (
		flags connFlags
		mode  string
		kind  string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Launch and run a metadata extraction job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := actorContext(cmd).Context()
			job, err := app.Engine.Launch(ctx, extraction.LaunchRequest{
				Connector:      connector.Teradata,
				ExtractionType: kind,
				Mode:           core.ParseRunMode(mode),
				Config:         flags.config(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "job %d created\n", job.ID)

			res, err := app.Engine.Run(ctx, job.ID)
			if err != nil {
				return fmt.Errorf("job %d: %w", job.ID, err)
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&mode, "mode", string(core.ModeIncremental), "full or incremental")
	cmd.Flags().StringVar(&kind, "type", "metadata", "extraction type")
	return cmd
}
