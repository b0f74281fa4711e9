package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var rootPath string

	rootCmd := &cobra.Command{
		Use:           "personamux",
		Short:         "Coordinate terminal personas sharing one project",
		Long:          "personamux runs a small team of terminal personas against a single project: each persona gets a pane, prompts funnel through one serialized backend session, and shared state survives crashes.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&rootPath, "root", "", "project root (defaults to the working directory)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newStartCmd(&rootPath),
		newStatusCmd(&rootPath),
		newSetStatusCmd(&rootPath),
		newAskCmd(&rootPath),
		newWaitCmd(&rootPath),
		newReplCmd(&rootPath),
		newBrokerCmd(&rootPath),
		newStopCmd(&rootPath),
	)

	return rootCmd
}
