package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/puzzbot/internal/logging"
	"github.com/example/puzzbot/internal/version"
	"github.com/example/puzzbot/internal/wire"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to the guild and handle events",
		Long: `Connect to the configured guild, handle chat commands, reactions and
voice activity, and serve backend hooks when hooks.listen is set.
Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bot, err := wire.NewBot(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer bot.Close()

			logger.Info("starting", "version", version.String(), "guild_id", cfg.Discord.GuildID, "store", cfg.Store.Driver)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return bot.RunGateway(gctx) })
			g.Go(func() error { return bot.RunHooks(gctx) })
			if err := g.Wait(); err != nil {
				return err
			}
			logger.Info("stopped")
			return nil
		},
	}
}
