package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/puzzbot/internal/cli"
	"github.com/example/puzzbot/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "puzzbot",
		Short:   "puzzbot - puzzle hunt helper for a Discord guild",
		Version: version.String(),
		Long: `puzzbot keeps a hunt's Discord guild in step with its puzzle records:
channels per puzzle grouped by round, status glyphs, and which table is
working on what.`,
		SilenceUsage: true,
	}
	cli.AddConfigFlag(rootCmd)

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.ConfigCmd())
	rootCmd.AddCommand(cli.DBCmd())
	rootCmd.AddCommand(cli.VersionCmd())

	// Record store views
	rootCmd.AddCommand(cli.TablesCmd())
	rootCmd.AddCommand(cli.PuzzlesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
