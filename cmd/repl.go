package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/hrepl/internal/domain"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const historyFile = ".hrepl_history"

func newReplCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl [target]",
		Short: "Open an interactive prompt against a target's session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := pickTarget(app, cmd, args)
			if err != nil {
				return err
			}

			session, err := app.sessions.Session(cmd.Context(), target)
			if err != nil {
				return err
			}
			defer app.sessions.ExitAll(false)

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "connected to %s. Ctrl+D or :quit exits.\n", target.ID)

			home, _ := os.UserHomeDir()
			histPath := filepath.Join(home, historyFile)

			ln := liner.NewLiner()
			defer ln.Close()
			ln.SetCtrlCAborts(true)

			if f, err := os.Open(histPath); err == nil {
				_, _ = ln.ReadHistory(f)
				_ = f.Close()
			}
			defer func() {
				if f, err := os.Create(histPath); err == nil {
					_, _ = ln.WriteHistory(f)
					_ = f.Close()
				}
			}()

			for {
				line, err := ln.Prompt(string(target.ID) + "> ")
				if err != nil {
					_, _ = fmt.Fprintln(cmd.OutOrStdout())
					return nil
				}

				trimmed := strings.TrimSpace(line)
				if trimmed == "" {
					continue
				}
				if trimmed == domain.CommandQuit {
					return nil
				}

				out, err := session.Run(cmd.Context(), trimmed)
				if err != nil {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
					continue
				}

				printOutput(cmd.OutOrStdout(), out)
				ln.AppendHistory(trimmed)
			}
		},
	}
}

func pickTarget(app *app, cmd *cobra.Command, args []string) (domain.Target, error) {
	if len(args) == 1 {
		return app.targets.GetByID(cmd.Context(), domain.TargetID(args[0]))
	}

	targets, err := app.targets.List(cmd.Context())
	if err != nil {
		return domain.Target{}, err
	}
	switch len(targets) {
	case 0:
		return domain.Target{}, fmt.Errorf("no targets configured: %w", domain.ErrTargetNotFound)
	case 1:
		return targets[0], nil
	default:
		return domain.Target{}, fmt.Errorf("multiple targets configured, name one explicitly")
	}
}
