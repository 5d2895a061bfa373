package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/cscbridge/internal/config"
)

// configureLogger creates a logger whose level comes from --log-level, falling back to
// the config file value.
func configureLogger(cmd *cobra.Command, cfg *config.Config) (*logrus.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" && cfg != nil {
		level = cfg.LogLevel
	}
	return config.NewLogger(level, cmd.ErrOrStderr())
}

// loadConfig reads --config, or the default location when the flag is empty.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
