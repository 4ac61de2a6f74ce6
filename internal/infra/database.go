package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	postgresPingTimeout  = 5 * time.Second
	postgresMaxConnLife  = 30 * time.Minute
	postgresMaxConnIdle  = 5 * time.Minute
	postgresDefaultConns = 10
)

var errDatabaseURLRequired = errors.New("database url is required")

// NewPostgresPool opens the ledger connection pool and pings it. appName is
// reported to Postgres as application_name.
func NewPostgresPool(ctx context.Context, url, appName string) (*pgxpool.Pool, error) {
	cfg, err := postgresConfig(url, appName)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

func postgresConfig(url, appName string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, errDatabaseURLRequired
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	// pool_max_conns may raise the pool size but not lower it below the default.
	if cfg.MaxConns < postgresDefaultConns {
		cfg.MaxConns = postgresDefaultConns
	}
	cfg.MaxConnLifetime = postgresMaxConnLife
	cfg.MaxConnIdleTime = postgresMaxConnIdle
	if appName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = appName
	}
	return cfg, nil
}
