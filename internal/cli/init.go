package cli

import (
	"fmt"
	"path/filepath"

	"tradebot-config/internal/bootstrap"

	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command
func NewInitCommand(container *Container) *cobra.Command {
	var (
		force         bool
		userFolder    string
		defaultConfig string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the user configuration folder from the shipped defaults",
		Long: `Create the user folder, copy the default configuration into it and
create the default profile with its avatar.

Nothing is done when the user configuration already exists, unless --force
is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := container.Config.PathsConfig
			if userFolder != "" {
				paths.UserFolder = userFolder
				paths.UserConfigFile = filepath.Join(userFolder, filepath.Base(paths.UserConfigFile))
				paths.ProfilesFolder = filepath.Join(userFolder, filepath.Base(paths.ProfilesFolder))
			}
			if defaultConfig != "" {
				paths.DefaultConfigFile = defaultConfig
			}
			opts := bootstrap.OptionsFromConfig(paths)

			if !force && !bootstrap.NeedsInit(opts) {
				fmt.Fprintf(cmd.OutOrStdout(), "User configuration already present at %s\n", opts.UserConfigFile)
				return nil
			}
			if err := bootstrap.InitConfig(opts, container.Logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User configuration created at %s\n", opts.UserConfigFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing user configuration")
	cmd.Flags().StringVar(&userFolder, "user-folder", "", "User folder to create")
	cmd.Flags().StringVar(&defaultConfig, "default-config", "", "Default configuration file to copy")

	return cmd
}
