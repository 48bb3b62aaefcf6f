package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

const DefaultApplicationName = "sqlscribe"

type DBConfig struct {
	DSN             string
	ApplicationName string
	// StatementTimeout caps every warehouse statement server side. Zero keeps
	// the server default.
	StatementTimeout time.Duration
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxIdleTime  time.Duration
	ConnMaxLifetime  time.Duration
}

// OpenDB connects to the warehouse with sessions that default to read-only
// transactions.
func OpenDB(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	connConfig, err := warehouseConnConfig(cfg)
	if err != nil {
		return nil, err
	}
	db := stdlib.OpenDB(*connConfig)

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}

	return db, nil
}

func warehouseConnConfig(cfg DBConfig) (*pgx.ConnConfig, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	if cfg.StatementTimeout < 0 {
		return nil, fmt.Errorf("postgres statement timeout must be >= 0")
	}
	connConfig, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if connConfig.RuntimeParams == nil {
		connConfig.RuntimeParams = map[string]string{}
	}

	appName := strings.TrimSpace(cfg.ApplicationName)
	if appName == "" {
		appName = DefaultApplicationName
	}
	if _, set := connConfig.RuntimeParams["application_name"]; !set {
		connConfig.RuntimeParams["application_name"] = appName
	}
	connConfig.RuntimeParams["default_transaction_read_only"] = "on"
	if cfg.StatementTimeout > 0 {
		connConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
	return connConfig, nil
}
