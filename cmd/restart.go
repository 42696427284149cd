package cmd

import (
	"fmt"

	"github.com/bnema/hrepl/internal/domain"
	"github.com/spf13/cobra"
)

func newRestartCmd(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restart [target]",
		Short: "Restart one target's session, or all live sessions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if err := app.sessions.RestartAll(cmd.Context(), force); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "restarted all live sessions")
				return nil
			}

			session, ok := app.sessions.Existing(domain.TargetID(args[0]))
			if !ok {
				return fmt.Errorf("no live session for target %s", args[0])
			}
			if err := session.Restart(cmd.Context(), force); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "restarted %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "kill the subprocess instead of asking it to quit")

	return cmd
}
