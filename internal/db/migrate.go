package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is applied statement by statement; every statement is idempotent.
var Schema = []string{
	`CREATE SCHEMA IF NOT EXISTS holdco`,
	`CREATE TABLE IF NOT EXISTS holdco.players (
		user_id    TEXT PRIMARY KEY,
		email      TEXT NOT NULL,
		username   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS holdco.challenges (
		id         BIGSERIAL PRIMARY KEY,
		day        DATE NOT NULL UNIQUE,
		seed       BIGINT NOT NULL,
		max_rounds INT NOT NULL,
		par_score  BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS holdco.scores (
		id                  BIGSERIAL PRIMARY KEY,
		user_id             TEXT NOT NULL REFERENCES holdco.players (user_id),
		run_id              TEXT NOT NULL,
		challenge_id        BIGINT REFERENCES holdco.challenges (id),
		seed                BIGINT NOT NULL,
		rounds              INT NOT NULL,
		max_rounds          INT NOT NULL,
		equity_value        BIGINT NOT NULL,
		total_distributions BIGINT NOT NULL,
		moic                DOUBLE PRECISION NOT NULL,
		roic                DOUBLE PRECISION NOT NULL,
		businesses          INT NOT NULL,
		score               BIGINT NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, run_id)
	)`,
	`CREATE INDEX IF NOT EXISTS scores_challenge_score_idx ON holdco.scores (challenge_id, score DESC)`,
	`CREATE TABLE IF NOT EXISTS holdco.idempotency_keys (
		user_id    TEXT NOT NULL,
		key        TEXT NOT NULL,
		action     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, key)
	)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range Schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
