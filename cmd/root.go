package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hrepl",
		Short:         "hrepl: manage GHCi sessions for type, location and identifier queries",
		Long:          "hrepl keeps one long-lived GHCi session per compilable target, tracks what each session has loaded, and answers :type-at/:loc-at/:info/:browse! queries from the terminal or over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoadCmd(app),
		newTypeAtCmd(app),
		newLocAtCmd(app),
		newInfoCmd(app),
		newBrowseCmd(app),
		newTargetsCmd(app),
		newStatusCmd(app),
		newRestartCmd(app),
		newReplCmd(app),
		newServeCmd(app),
	)

	return rootCmd
}
