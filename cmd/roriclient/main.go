// RORI client - binds a local daemon account to a RORI service
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rori/roriclient/internal/config"
	"github.com/rori/roriclient/internal/logging"
)

var version = "0.2.0"

var (
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "roriclient",
		Short: "RORI client - your voice endpoint for a RORI service",
		Long: `roriclient binds an account of the local communication daemon to a
RORI coordination service, then relays messages between the service and
this device: speech, media and alarm control, and shell commands.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
		RunE:              runClient,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(setupCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {
	if logLevel == "" {
		return nil
	}
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logging.SetLevel(level)
	return nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the client (default)",
		RunE:  runClient,
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show roriclient version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("roriclient v%s\n", version)
		},
	}
}

// loadConfig loads the config and applies its log level unless the flag
// already set one.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel == "" {
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		logging.SetLevel(level)
	}
	return cfg, nil
}
