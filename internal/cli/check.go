package cli

import (
	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command
func NewCheckCommand(container *Container) *cobra.Command {
	var (
		backtesting bool
		output      string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the configuration health check and print its report",
		Long: `Load the configuration document and run the health check:

- encrypt plaintext exchange credentials
- keep only one of the real trader and the trader simulator enabled
- warn when no trader is enabled
- save the document when something was repaired`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("backtesting") {
				backtesting = container.Config.SecurityConfig.InBacktesting
			}

			session, closeSession, err := container.openSession(cmd.Context(), backtesting)
			if err != nil {
				return err
			}
			defer closeSession()

			report, err := session.Start()
			if report != nil {
				if printErr := printValue(cmd.OutOrStdout(), output, report); printErr != nil {
					return printErr
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&backtesting, "backtesting", false, "Skip the no active trader warning")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format (json, yaml)")

	return cmd
}
