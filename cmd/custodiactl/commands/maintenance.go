package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/custodia/internal/admin"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk-load records from files",
	}

	var delimiter string
	custodians := &cobra.Command{
		Use:   "custodians <file>",
		Short: "Quick-import custodians (gestor, secretaria, coordenacao, email columns)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			if delimiter == "" {
				delimiter = app.Config.Upload.DefaultDelimiter
			}
			res, err := app.Service.QuickImportCustodians(actorContext(cmd).Context(), data, filepath.Base(args[0]), delimiter)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	custodians.Flags().StringVarP(&delimiter, "delimiter", "d", "", "field delimiter for text files")
	cmd.AddCommand(custodians)
	return cmd
}

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <connector>",
		Short: "Delete every asset created by a connector",
		Long: `Delete every asset whose provenance is the given connector.

Manually entered and imported assets are never touched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := admin.PurgeConnectorAssets(actorContext(cmd).Context(), app.Store, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d assets\n", n)
			return nil
		},
	}
}
