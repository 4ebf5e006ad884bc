package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"airspace_fan/internal/config"
	"airspace_fan/internal/logger"
)

var (
	configPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "airspace",
		Short: "Discover and control whole-house fans",
		Long: `airspace finds whole-house fans on the local network, keeps their state
current, and raises an alert when the outside temperature leaves the
configured range while fans are running.`,
		SilenceUsage: true,
	}
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default configs/config.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log_level: debug, info, warn or error")

	rootCmd.AddCommand(serveCmd, scanCmd)
}

// loadConfig reads the config, applies flag overrides and builds the logger.
func loadConfig(overrides ...func(*config.Config)) (config.Config, *logger.Logger, error) {
	if logLevel != "" {
		overrides = append(overrides, func(c *config.Config) { c.LogLevel = logLevel })
	}
	cfg, err := config.Load(configPath, overrides...)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger.New(cfg.LogLevel), nil
}
