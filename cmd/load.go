package cmd

import (
	"fmt"

	"github.com/bnema/hrepl/internal/domain"
	"github.com/spf13/cobra"
)

func newLoadCmd(app *app) *cobra.Command {
	var changed bool
	var bytecode bool

	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Load a source file into its target's session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit := domain.Unit(args[0])

			target, err := app.resolver.TargetFor(unit)
			if err != nil {
				return err
			}

			session, err := app.sessions.Session(cmd.Context(), target)
			if err != nil {
				return err
			}

			var result *domain.LoadResult
			err = runLoadSpinner(cmd.Context(), cmd.ErrOrStderr(), fmt.Sprintf("Loading %s...", unit), func() error {
				var loadErr error
				result, loadErr = session.Load(cmd.Context(), unit, changed, bytecode)
				return loadErr
			})
			if err != nil {
				return err
			}
			if result == nil {
				return fmt.Errorf("load %s: %w", unit, domain.ErrReplUnavailable)
			}

			printOutput(cmd.OutOrStdout(), &result.Output)
			if result.Failed {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "load of %s failed\n", unit)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&changed, "changed", false, "the file's content changed since the last load (allows a cheap :reload)")
	cmd.Flags().BoolVar(&bytecode, "bytecode", false, "force the interpreter into byte-code mode for this load")

	return cmd
}
