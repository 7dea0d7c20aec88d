// Package cli holds the operator commands of the puzzbot binary.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/puzzbot/internal/config"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "puzzbot.yaml"

// AddConfigFlag registers the --config flag every subcommand reads.
func AddConfigFlag(root *cobra.Command) {
	root.PersistentFlags().StringP("config", "c", DefaultConfigPath, "Path to the config file (.yaml, .json or .jsonc)")
}

func configPath(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil || path == "" {
		return DefaultConfigPath
	}
	return path
}

// loadConfig reads and validates the config named by --config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
