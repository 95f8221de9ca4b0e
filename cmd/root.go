package cmd

import "github.com/spf13/cobra"

func Execute() error {
	root, closeApp := newRootCmd()
	defer closeApp()

	return root.Execute()
}

func newRootCmd() (*cobra.Command, func()) {
	rootCmd := &cobra.Command{
		Use:           "oneiro",
		Short:         "Oneiro: guided dream interpretation",
		Long:          "oneiro records a dream, asks three follow-up questions through an OpenAI assistant, and stores the final interpretation. Without credentials it keeps going with built-in questions.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd, func() {}
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newDreamCmd(app),
		newProfileCmd(app),
		newAuthCmd(app),
		newServeCmd(app),
	)

	return rootCmd, app.close
}
