package cli

import (
	"github.com/spf13/cobra"

	cliadapter "github.com/example/puzzbot/internal/adapters/cli"
	"github.com/example/puzzbot/internal/logging"
	"github.com/example/puzzbot/internal/wire"
)

// offline opens the record store named in config and runs fn with a board
// adapter over it.
func offline(cmd *cobra.Command, fn func(*cliadapter.BoardAdapter) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := wire.OpenStore(cmd.Context(), cfg.Store, logging.Discard())
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(wire.BoardAdapter(wire.OfflineReports(store, cfg), cmd.OutOrStdout()))
}

// TablesCmd returns the tables command
func TablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Show which puzzles are being worked at which table",
		Long: `Show the tables board from the record store. Occupant counts need a live
guild connection, so they print as "?".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return offline(cmd, func(a *cliadapter.BoardAdapter) error {
				return a.Tables(cmd.Context())
			})
		},
	}
}

// PuzzlesCmd returns the puzzles command
func PuzzlesCmd() *cobra.Command {
	puzzlesCmd := &cobra.Command{
		Use:   "puzzles",
		Short: "List puzzles from the record store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			round, _ := cmd.Flags().GetString("round")
			open, _ := cmd.Flags().GetBool("open")
			return offline(cmd, func(a *cliadapter.BoardAdapter) error {
				return a.Puzzles(cmd.Context(), round, open)
			})
		},
	}
	puzzlesCmd.Flags().StringP("round", "r", "", "Only puzzles of this round")
	puzzlesCmd.Flags().Bool("open", false, "Hide solved puzzles")
	return puzzlesCmd
}
