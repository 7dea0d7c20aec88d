// Package wire provides dependency injection for puzzbot. It builds the
// record store, the platform gateway and every service from one Config.
package wire

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	cliadapter "github.com/example/puzzbot/internal/adapters/cli"
	"github.com/example/puzzbot/internal/adapters/discord"
	"github.com/example/puzzbot/internal/adapters/puzzboss"
	"github.com/example/puzzbot/internal/adapters/sqlstore"
	"github.com/example/puzzbot/internal/app"
	"github.com/example/puzzbot/internal/clock"
	"github.com/example/puzzbot/internal/config"
	"github.com/example/puzzbot/internal/core/category"
	"github.com/example/puzzbot/internal/db"
	"github.com/example/puzzbot/internal/dispatch"
	"github.com/example/puzzbot/internal/hooks"
	"github.com/example/puzzbot/internal/keylock"
	"github.com/example/puzzbot/internal/ports/primary"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// Store is an opened record store.
type Store struct {
	Puzzles secondary.PuzzleRepository
	Rounds  secondary.RoundRepository
	db      *sql.DB
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OpenStore opens the record store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Store, error) {
	switch cfg.Driver {
	case "sqlite":
		database, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Store{
			Puzzles: sqlstore.NewPuzzleRepository(database),
			Rounds:  sqlstore.NewRoundRepository(database),
			db:      database,
		}, nil

	case "puzzboss":
		database, err := puzzboss.OpenMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		reads := sqlstore.NewPuzzleRepository(database)
		store := puzzboss.NewStore(
			reads,
			sqlstore.NewRoundRepository(database),
			reads,
			puzzboss.NewRest(cfg.RESTURL, cfg.RequestTimeout.Std(), logger),
			cfg.ReadRetries,
			logger,
		)
		return &Store{Puzzles: store.Puzzles(), Rounds: store.Rounds(), db: database}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// noLocations stands in for the platform when only the record store is
// open. Every puzzle location is then reported without an occupant count.
type noLocations struct{}

func (noLocations) ListLocations(ctx context.Context) ([]secondary.VoiceLocation, error) {
	return nil, nil
}

func (noLocations) Location(ctx context.Context, channelID string) (*secondary.VoiceLocation, error) {
	return nil, nil
}

func (noLocations) LocationOf(ctx context.Context, userID string) (*secondary.VoiceLocation, error) {
	return nil, nil
}

// OfflineReports returns a ReportService over the record store alone.
func OfflineReports(store *Store, cfg *config.Config) primary.ReportService {
	return app.NewReportService(store.Puzzles, store.Rounds, noLocations{}, clock.Real(), cfg.Discord.TableCategoryMarker, time.Local)
}

// BoardAdapter returns a BoardAdapter writing to out.
func BoardAdapter(reports primary.ReportService, out io.Writer) *cliadapter.BoardAdapter {
	return cliadapter.NewBoardAdapter(reports, out)
}

// Bot is the fully wired long-running process.
type Bot struct {
	Gateway    *discord.Gateway
	Dispatcher *dispatch.Dispatcher
	Hooks      *hooks.Server // nil when hooks.listen is empty

	cfg       *config.Config
	store     *Store
	debouncer *app.Debouncer
}

// NewBot opens the store and builds every service over it and the guild.
func NewBot(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Bot, error) {
	store, err := OpenStore(ctx, cfg.Store, logger.With("component", "store"))
	if err != nil {
		return nil, err
	}
	gateway, err := discord.New(cfg.Discord.Token, cfg.Discord.GuildID, logger.With("component", "discord"))
	if err != nil {
		store.Close()
		return nil, err
	}

	clk := clock.Real()
	puzzleLocks := &keylock.Map{}
	debouncer := app.NewDebouncer(clk)
	roles := cfg.Discord.PrivilegedRoles

	categories := app.NewCategoryService(gateway, gateway, category.Roots{
		ActiveID:  cfg.Discord.ActiveRootID,
		ArchiveID: cfg.Discord.SolvedRootID,
	}, cfg.Capacity.Limit, logger.With("service", "category"))
	executor := app.NewEffectExecutor(store.Puzzles, store.Rounds, gateway, gateway, categories, logger.With("service", "executor"))

	status := app.NewStatusService(store.Puzzles, gateway, gateway, categories, executor, clk, puzzleLocks, app.StatusSettings{
		StatusChannelID: cfg.Discord.StatusChannelID,
		ActiveRootID:    cfg.Discord.ActiveRootID,
		RenameWindow:    cfg.Status.RenameGuardWindow.Std(),
		PrivilegedRoles: roles,
	}, logger.With("service", "status"))
	rounds := app.NewRoundService(store.Rounds, categories, executor, cfg.Discord.StatusChannelID, roles, logger.With("service", "round"))
	occupancy := app.NewOccupancyService(store.Puzzles, gateway, executor, debouncer, puzzleLocks, app.OccupancySettings{
		TableMarker:  cfg.Discord.TableCategoryMarker,
		GracePeriod:  cfg.Occupancy.GracePeriod.Std(),
		ClearTimeout: cfg.Occupancy.ClearTimeout.Std(),
	}, logger.With("service", "occupancy"))
	reports := app.NewReportService(store.Puzzles, store.Rounds, gateway, clk, cfg.Discord.TableCategoryMarker, time.Local)
	cleanup := app.NewCleanupService(store.Puzzles, gateway, categories, []string{cfg.Discord.StatusChannelID}, roles, logger.With("service", "cleanup"))

	bot := &Bot{
		Gateway: gateway,
		Dispatcher: dispatch.New(dispatch.Services{
			Status:    status,
			Rounds:    rounds,
			Occupancy: occupancy,
			Reports:   reports,
			Cleanup:   cleanup,
		}, gateway, cfg.Discord.CommandPrefix, logger.With("component", "dispatch")),
		cfg:       cfg,
		store:     store,
		debouncer: debouncer,
	}
	if cfg.Hooks.Listen != "" {
		bot.Hooks = hooks.New(status, rounds, cfg.Hooks.Secret, roles, logger.With("component", "hooks"))
	}
	return bot, nil
}

// RunGateway consumes guild events until ctx is done.
func (b *Bot) RunGateway(ctx context.Context) error {
	return b.Gateway.Run(ctx, b.Dispatcher, b.cfg.Discord.RequestTimeout.Std())
}

// RunHooks serves backend callbacks until ctx is done. It returns at once
// when hooks are disabled.
func (b *Bot) RunHooks(ctx context.Context) error {
	if b.Hooks == nil {
		return nil
	}
	return b.Hooks.Run(ctx, b.cfg.Hooks.Listen)
}

// Close drops pending table clears and releases the store.
func (b *Bot) Close() error {
	b.debouncer.Stop()
	return b.store.Close()
}
