package cmd

import (
	"encoding/json"
	"fmt"

	statusadapter "github.com/bnema/hrepl/internal/adapters/render/status"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show live session state per target",
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshots := app.sessions.Snapshots()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snapshots)
			}

			rendered, err := app.statusRenderer(snapshots, statusadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit session snapshots as JSON")

	return cmd
}
