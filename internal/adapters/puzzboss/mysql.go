package puzzboss

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// OpenMySQL opens the backend database described by dsn. parseTime is forced
// on and connections are recycled so a long hunt weekend survives server-side
// idle timeouts.
func OpenMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build mysql connector: %w", err)
	}
	database := sql.OpenDB(connector)
	database.SetConnMaxLifetime(5 * time.Minute)
	database.SetMaxIdleConns(4)
	database.SetMaxOpenConns(8)

	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to reach mysql: %w", err)
	}
	return database, nil
}
