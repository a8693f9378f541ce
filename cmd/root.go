package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nstehr/rampart/rampart-core/config"
	"github.com/nstehr/rampart/rampart-core/logging"
)

const banner = `
██████╗  █████╗ ███╗   ███╗██████╗  █████╗ ██████╗ ████████╗
██╔══██╗██╔══██╗████╗ ████║██╔══██╗██╔══██╗██╔══██╗╚══██╔══╝
██████╔╝███████║██╔████╔██║██████╔╝███████║██████╔╝   ██║
██╔══██╗██╔══██║██║╚██╔╝██║██╔═══╝ ██╔══██║██╔══██╗   ██║
██║  ██║██║  ██║██║ ╚═╝ ██║██║     ██║  ██║██║  ██║   ██║
╚═╝  ╚═╝╚═╝  ╚═╝╚═╝     ╚═╝╚═╝     ╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝

Doctrine-Driven Tower Defense Intelligence`

var (
	envFile   string
	logFormat string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "rampart",
	Short: "Rule-driven tower defense algo",
	Long: `Rampart plays the two-player tower defense game over stdin/stdout.

The engine writes one JSON line per turn state or action frame; rampart
answers every turn with a build queue and a deploy queue. Logs go to stderr.

Use "rampart [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}

// loadConfig reads the environment, applies flag overrides and installs the
// default logger on stderr.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if err := logging.Setup(cfg.LogFormat, cfg.LogLevel, os.Stderr); err != nil {
		return config.Config{}, fmt.Errorf("logging: %w", err)
	}
	return cfg, nil
}
