package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bnema/hrepl/internal/adapters/project"
	"github.com/spf13/cobra"
)

func newTargetsCmd(app *app) *cobra.Command {
	var discover bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List configured targets, or discover them from stack.yaml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if discover {
				discovered, err := project.DiscoverTargets(app.locator.Root())
				if err != nil {
					return err
				}
				for _, target := range discovered {
					if err := app.targets.Save(cmd.Context(), target); err != nil {
						return fmt.Errorf("save target %s: %w", target.ID, err)
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "discovered %s\n", target.ID)
				}
				return nil
			}

			targets, err := app.targets.List(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(targets)
			}

			if len(targets) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no targets configured (try --discover)")
				return nil
			}

			for _, target := range targets {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s %s\tsrc: %s\n",
					target.ID, target.PackageName, target.Stanza, strings.Join(target.SourceDirs, ", "))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&discover, "discover", false, "seed targets from the project's stack.yaml packages")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit targets as JSON")

	return cmd
}
