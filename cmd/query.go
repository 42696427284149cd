package cmd

import (
	"fmt"
	"strconv"

	"github.com/bnema/hrepl/internal/domain"
	"github.com/spf13/cobra"
)

func parseSelection(args []string) (domain.Selection, error) {
	coords := make([]int, 4)
	for i, raw := range args {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			return domain.Selection{}, fmt.Errorf("invalid coordinate %q: expected a 1-based integer", raw)
		}
		coords[i] = value
	}

	return domain.Selection{
		StartLine:   coords[0],
		StartColumn: coords[1],
		EndLine:     coords[2],
		EndColumn:   coords[3],
	}, nil
}

func newTypeAtCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "type-at <file> <start-line> <start-col> <end-line> <end-col> <expression>",
		Short: "Query the type of an expression at a source span",
		Args:  cobra.ExactArgs(6),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSelection(args[1:5])
			if err != nil {
				return err
			}

			out, err := app.queries.FindTypeInfo(cmd.Context(), domain.Unit(args[0]), sel, args[5])
			if err != nil {
				return err
			}
			if out == nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "no result (session busy or unavailable)")
				return nil
			}

			printOutput(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newLocAtCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "loc-at <file> <start-line> <start-col> <end-line> <end-col> <name>",
		Short: "Query the definition site of a name at a source span",
		Args:  cobra.ExactArgs(6),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSelection(args[1:5])
			if err != nil {
				return err
			}

			out, err := app.queries.FindLocationInfo(cmd.Context(), domain.Unit(args[0]), sel, args[5])
			if err != nil {
				return err
			}
			if out == nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "no result (session busy or unavailable)")
				return nil
			}

			printOutput(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newInfoCmd(app *app) *cobra.Command {
	var moduleName string

	cmd := &cobra.Command{
		Use:   "info <file> <name>",
		Short: "Show what the interpreter knows about a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := app.queries.FindInfo(cmd.Context(), domain.Unit(args[0]), moduleName, args[1])
			if err != nil {
				return err
			}
			if out == nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "no result (session busy or unavailable)")
				return nil
			}

			printOutput(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&moduleName, "module", "", "module expected to have the name in scope (skips the load when already seen)")

	return cmd
}

func newBrowseCmd(app *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "browse <module>",
		Short: "List the identifiers a module exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var unit *domain.Unit
			if file != "" {
				u := domain.Unit(file)
				unit = &u
			}

			out, err := app.queries.GetModuleIdentifiers(cmd.Context(), args[0], unit)
			if err != nil {
				return err
			}
			if out == nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "no result (owning unit not loaded)")
				return nil
			}

			printOutput(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "source file owning the module, loaded first when necessary")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
