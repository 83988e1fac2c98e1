package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localrivet/neurogalaxy"
	"github.com/localrivet/neurogalaxy/internal/config"
	"github.com/localrivet/neurogalaxy/internal/logger"
)

var globalServer *neurogalaxy.Server

// Flags
var (
	configPath   string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "neurogalaxy",
	Short: "Lay out notes as a labelled 3D galaxy",
	Long: `neurogalaxy embeds short text notes, groups them into topics, places them
in 3D space and gives every topic a short title.

Run "neurogalaxy serve" to expose the operations as MCP tools over stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}
		if _, err := parseFormat(outputFormat); err != nil {
			return err
		}

		cfg, err := config.LoadConfigWithPath(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		srv, err := neurogalaxy.NewServer(neurogalaxy.ServerOptions{
			Config: cfg,
			Logger: logger.FromSettings(cfg.Logging.Level, cfg.Logging.Format),
		})
		if err != nil {
			return fmt.Errorf("failed to start neurogalaxy: %w", err)
		}
		globalServer = srv
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if globalServer != nil {
			err := globalServer.Stop()
			globalServer = nil
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFilename, "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", string(formatJSON), "Output format: json or yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
}
