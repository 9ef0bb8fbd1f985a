// Package db owns the Postgres pool and schema for the score store.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions tunes the score store pool. Zero values take the defaults below.
type PoolOptions struct {
	MaxConns         int32
	MinConns         int32
	ApplicationName  string
	StatementTimeout time.Duration
	// ConnectAttempts pings the database this many times at startup before giving up,
	// so a service started alongside Postgres can wait for it.
	ConnectAttempts int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.MaxConns <= 0 {
		o.MaxConns = 20
	}
	if o.MinConns <= 0 || o.MinConns > o.MaxConns {
		o.MinConns = 2
	}
	if o.ApplicationName == "" {
		o.ApplicationName = "holdco"
	}
	if o.StatementTimeout <= 0 {
		o.StatementTimeout = 15 * time.Second
	}
	if o.ConnectAttempts <= 0 {
		o.ConnectAttempts = 1
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff < o.InitialBackoff {
		o.MaxBackoff = 10 * time.Second
	}
	return o
}

// Config parses databaseURL and applies opts without touching the network.
func Config(databaseURL string, opts PoolOptions) (*pgxpool.Config, error) {
	opts = opts.withDefaults()
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = opts.MinConns
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute
	cfg.HealthCheckPeriod = time.Minute
	cfg.ConnConfig.RuntimeParams["application_name"] = opts.ApplicationName
	cfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	return cfg, nil
}

// Connect opens the pool and pings it, backing off exponentially between attempts.
func Connect(ctx context.Context, databaseURL string, opts PoolOptions, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := Config(databaseURL, opts)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	wait := opts.InitialBackoff
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			return pool, nil
		}
		if attempt >= opts.ConnectAttempts {
			break
		}
		logger.Warn("db not ready", "attempt", attempt, "retry_in", wait.String(), "err", err)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, opts.MaxBackoff)
	}
	pool.Close()
	return nil, fmt.Errorf("ping db after %d attempts: %w", opts.ConnectAttempts, err)
}
