// Package cli implements the tradebot-config command line.
package cli

import (
	"fmt"

	"tradebot-config/config"
	"tradebot-config/internal/logging"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// NewRootCommand creates the tradebot-config command with its subcommands
func NewRootCommand(container *Container) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tradebot-config",
		Short: "Bootstrap and validate the trading bot configuration",
		Long: `tradebot-config prepares the user configuration folder on first run,
checks the configuration document (credential encryption and trading modes)
and exposes startup and edited snapshots of it.`,
		Version:       fmt.Sprintf("%s (built: %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadContainer(cmd, container)
		},
	}

	rootCmd.PersistentFlags().String("config", config.DefaultBootstrapFile, "Bootstrap settings file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the log level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(NewInitCommand(container))
	rootCmd.AddCommand(NewCheckCommand(container))
	rootCmd.AddCommand(NewShowCommand(container))
	rootCmd.AddCommand(NewServeCommand(container))

	return rootCmd
}

func loadContainer(cmd *cobra.Command, container *Container) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LoggingConfig.Level = level
	}

	logger := logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
		Component:   "main",
	})
	logging.SetDefault(logger)

	container.Config = cfg
	container.Logger = logger
	return nil
}
