package cli

import (
	"fmt"

	"tradebot-config/internal/configuration"

	"github.com/spf13/cobra"
)

// NewShowCommand creates the show command
func NewShowCommand(container *Container) *cobra.Command {
	var (
		snapshot string
		dictOnly bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "show [key]",
		Short: "Print a configuration snapshot",
		Long: `Load and check the configuration document, then print the startup or
edited snapshot registered under key (default global_config).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := configuration.GlobalConfigKey
			if len(args) == 1 {
				key = args[0]
			}

			session, closeSession, err := container.openSession(cmd.Context(), container.Config.SecurityConfig.InBacktesting)
			if err != nil {
				return err
			}
			defer closeSession()

			if _, err := session.Start(); err != nil {
				return err
			}

			var value interface{}
			switch snapshot {
			case "startup":
				value, err = session.Startup(key, dictOnly)
			case "edited":
				value, err = session.Edited(key, dictOnly)
			default:
				return fmt.Errorf("unknown snapshot %q, expected startup or edited", snapshot)
			}
			if err != nil {
				return err
			}
			return printValue(cmd.OutOrStdout(), output, value)
		},
	}

	cmd.Flags().StringVar(&snapshot, "snapshot", "startup", "Snapshot to print (startup, edited)")
	cmd.Flags().BoolVar(&dictOnly, "dict-only", true, "Print the raw mapping of documents")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format (json, yaml)")

	return cmd
}
