// Package repository persists completed match records and their event logs
// to Postgres. The engine never touches it; the host wires it to GameEnded.
package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/openduel/duel-server-go/internal/config"
)

// DB wraps a pgx connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDB connects to Postgres using the configured URL and verifies the
// connection with a ping.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.StatementTimeout > 0 {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] =
			strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connected",
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return &DB{Pool: pool, logger: logger}, nil
}

// Close releases the pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// EnsureSchema creates the match archive tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS matches (
	game_id       TEXT PRIMARY KEY,
	player_a      TEXT NOT NULL,
	player_b      TEXT NOT NULL,
	winner        TEXT NOT NULL DEFAULT '',
	win_reason    TEXT NOT NULL,
	turns         INT NOT NULL,
	seed          BIGINT NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS match_events (
	game_id       TEXT NOT NULL REFERENCES matches(game_id) ON DELETE CASCADE,
	seq           INT NOT NULL,
	event_type    TEXT NOT NULL,
	player_id     TEXT NOT NULL DEFAULT '',
	card_id       TEXT NOT NULL DEFAULT '',
	instance_id   TEXT NOT NULL DEFAULT '',
	target_id     TEXT NOT NULL DEFAULT '',
	amount        INT NOT NULL DEFAULT 0,
	source        TEXT NOT NULL DEFAULT '',
	turn          INT NOT NULL DEFAULT 0,
	occurred_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, seq)
);`
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
