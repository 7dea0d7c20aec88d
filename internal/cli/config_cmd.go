package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/puzzbot/internal/config"
)

// ConfigCmd returns the config command
func ConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config",
		Long:  `Write a commented default config to the path given by --config. An existing file is kept unless --force is set.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			path := configPath(cmd)
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Fill in discord.guild_id and the root category ids, then run `puzzbot serve`.")
			return nil
		},
	}
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (store: %s, capacity: %d)\n", configPath(cmd), cfg.Store.Driver, cfg.Capacity.Limit)
			return nil
		},
	}

	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(checkCmd)
	return configCmd
}
