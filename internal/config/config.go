// Package config loads the bot configuration. Files are YAML, or JSON with
// comments when the name ends in .json/.jsonc. Defaults are applied before
// the file is read, and a few secrets may come from the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvDiscordToken = "PUZZBOT_DISCORD_TOKEN"
	EnvMySQLDSN     = "PUZZBOT_MYSQL_DSN"
	EnvHookSecret   = "PUZZBOT_HOOK_SECRET"
)

// Config is the full bot configuration.
type Config struct {
	Discord   DiscordConfig   `yaml:"discord" json:"discord"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Capacity  CapacityConfig  `yaml:"capacity" json:"capacity"`
	Status    StatusConfig    `yaml:"status" json:"status"`
	Occupancy OccupancyConfig `yaml:"occupancy" json:"occupancy"`
	Hooks     HooksConfig     `yaml:"hooks" json:"hooks"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// DiscordConfig identifies the guild and its well-known channels.
type DiscordConfig struct {
	Token               string   `yaml:"token" json:"token"`
	GuildID             string   `yaml:"guild_id" json:"guild_id"`
	StatusChannelID     string   `yaml:"status_channel_id" json:"status_channel_id"`
	ActiveRootID        string   `yaml:"active_root_id" json:"active_root_id"`
	SolvedRootID        string   `yaml:"solved_root_id" json:"solved_root_id"`
	TableCategoryMarker string   `yaml:"table_category_marker" json:"table_category_marker"`
	CommandPrefix       string   `yaml:"command_prefix" json:"command_prefix"`
	PrivilegedRoles     []string `yaml:"privileged_roles" json:"privileged_roles"`
	RequestTimeout      Duration `yaml:"request_timeout" json:"request_timeout"`
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	Driver         string   `yaml:"driver" json:"driver"` // "sqlite" or "puzzboss"
	SQLitePath     string   `yaml:"sqlite_path" json:"sqlite_path"`
	MySQLDSN       string   `yaml:"mysql_dsn" json:"mysql_dsn"`
	RESTURL        string   `yaml:"rest_url" json:"rest_url"`
	RequestTimeout Duration `yaml:"request_timeout" json:"request_timeout"`
	ReadRetries    int      `yaml:"read_retries" json:"read_retries"`
}

// CapacityConfig bounds group membership.
type CapacityConfig struct {
	Limit int `yaml:"limit" json:"limit"`
}

// StatusConfig tunes the status state machine.
type StatusConfig struct {
	RenameGuardWindow Duration `yaml:"rename_guard_window" json:"rename_guard_window"`
}

// OccupancyConfig tunes the occupancy tracker.
type OccupancyConfig struct {
	GracePeriod  Duration `yaml:"grace_period" json:"grace_period"`
	ClearTimeout Duration `yaml:"clear_timeout" json:"clear_timeout"`
}

// HooksConfig configures the backend callback server. An empty Listen
// disables it.
type HooksConfig struct {
	Listen string `yaml:"listen" json:"listen"`
	Secret string `yaml:"secret" json:"secret"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration used when a field is not set.
func Default() *Config {
	return &Config{
		Discord: DiscordConfig{
			TableCategoryMarker: "tables",
			CommandPrefix:       "!",
			PrivilegedRoles:     []string{"Beta Boss", "Puzzleboss", "Puzztech"},
			RequestTimeout:      Duration(10 * time.Second),
		},
		Store: StoreConfig{
			Driver:         "sqlite",
			SQLitePath:     "puzzbot.db",
			RequestTimeout: Duration(5 * time.Second),
			ReadRetries:    2,
		},
		Capacity:  CapacityConfig{Limit: 50},
		Status:    StatusConfig{RenameGuardWindow: Duration(10 * time.Minute)},
		Occupancy: OccupancyConfig{GracePeriod: Duration(30 * time.Second), ClearTimeout: Duration(time.Minute)},
		Log:       LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads the file at path over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc", ".hujson":
		standardized, err := hujson.Standardize(data)
		if err != nil {
			return err
		}
		return json.Unmarshal(standardized, cfg)
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvDiscordToken); v != "" {
		c.Discord.Token = v
	}
	if v := getenv(EnvMySQLDSN); v != "" {
		c.Store.MySQLDSN = v
	}
	if v := getenv(EnvHookSecret); v != "" {
		c.Hooks.Secret = v
	}
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Discord.GuildID == "" {
		errs = append(errs, errors.New("discord.guild_id is required"))
	}
	if c.Discord.ActiveRootID == "" {
		errs = append(errs, errors.New("discord.active_root_id is required"))
	}
	if c.Discord.SolvedRootID == "" {
		errs = append(errs, errors.New("discord.solved_root_id is required"))
	}
	if c.Discord.CommandPrefix == "" {
		errs = append(errs, errors.New("discord.command_prefix must not be empty"))
	}
	if c.Capacity.Limit <= 0 {
		errs = append(errs, fmt.Errorf("capacity.limit must be positive, got %d", c.Capacity.Limit))
	}
	if c.Status.RenameGuardWindow < 0 {
		errs = append(errs, errors.New("status.rename_guard_window must not be negative"))
	}
	if c.Occupancy.GracePeriod < 0 {
		errs = append(errs, errors.New("occupancy.grace_period must not be negative"))
	}
	if c.Store.ReadRetries < 0 {
		errs = append(errs, errors.New("store.read_retries must not be negative"))
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite driver"))
		}
	case "puzzboss":
		if c.Store.MySQLDSN == "" || c.Store.RESTURL == "" {
			errs = append(errs, errors.New("store.mysql_dsn and store.rest_url are required for the puzzboss driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	if c.Hooks.Listen != "" && c.Hooks.Secret == "" {
		errs = append(errs, errors.New("hooks.secret is required when hooks.listen is set"))
	}
	return errors.Join(errs...)
}

// DefaultYAML is the commented template written by `puzzbot config init`.
const DefaultYAML = `# puzzbot configuration

discord:
  # Bot token. Prefer setting PUZZBOT_DISCORD_TOKEN instead.
  token: ""
  guild_id: ""
  # Channel that receives a copy of every announcement.
  status_channel_id: ""
  # Permanent root categories; overflow groups clone their permissions.
  active_root_id: ""
  solved_root_id: ""
  # Voice channels under a category containing this text are tables.
  table_category_marker: tables
  command_prefix: "!"
  privileged_roles: ["Beta Boss", "Puzzleboss", "Puzztech"]
  request_timeout: 10s

store:
  # sqlite for local runs, puzzboss for the hunt backend (MySQL reads, REST writes).
  driver: sqlite
  sqlite_path: puzzbot.db
  mysql_dsn: ""
  rest_url: ""
  request_timeout: 5s
  read_retries: 2

capacity:
  limit: 50

status:
  # Renames closer together than this are skipped.
  rename_guard_window: 10m

occupancy:
  # How long a table must stay empty before its puzzles are released.
  grace_period: 30s
  clear_timeout: 1m

hooks:
  # Address for backend callbacks, e.g. 127.0.0.1:8787. Empty disables.
  listen: ""
  secret: ""

log:
  level: info
  format: json
`

// WriteDefault writes DefaultYAML to path atomically. It refuses to replace
// an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}
	if err := atomic.WriteFile(path, strings.NewReader(DefaultYAML)); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
