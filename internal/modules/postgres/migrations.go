package postgres

import (
	"context"
	"fmt"

	"fire_bridge/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Versioned, idempotent schema migrations, applied once at startup. Each
// version runs in its own transaction and is recorded in schema_migrations,
// so reruns are no-ops.

type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "base schema",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS users (
				user_id        BIGINT PRIMARY KEY,
				tier           TEXT NOT NULL DEFAULT 'NIBBLER',
				risk_pct       DOUBLE PRECISION NOT NULL DEFAULT 1.0,
				max_concurrent INT NOT NULL DEFAULT 3,
				daily_dd_limit DOUBLE PRECISION NOT NULL DEFAULT 200,
				cooldown_s     INT NOT NULL DEFAULT 30,
				balance_cache  DOUBLE PRECISION NOT NULL DEFAULT 0,
				last_fire_at   TIMESTAMPTZ
			)`,
			`CREATE TABLE IF NOT EXISTS missions (
				mission_id   TEXT PRIMARY KEY,
				signal_id    TEXT NOT NULL,
				payload_json JSONB NOT NULL,
				status       TEXT NOT NULL DEFAULT 'PENDING',
				expires_at   TIMESTAMPTZ NOT NULL,
				created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE TABLE IF NOT EXISTS fires (
				fire_id    TEXT PRIMARY KEY,
				mission_id TEXT NOT NULL REFERENCES missions(mission_id),
				user_id    BIGINT NOT NULL REFERENCES users(user_id),
				status     TEXT NOT NULL DEFAULT 'QUEUED',
				ticket     BIGINT,
				price      DOUBLE PRECISION,
				idem       TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS fires_idem_uq ON fires (idem)`,
			// at most one non-terminal fire per mission+user
			`CREATE UNIQUE INDEX IF NOT EXISTS fires_in_flight_uq
				ON fires (mission_id, user_id)
				WHERE status IN ('QUEUED', 'SENT')`,
			`CREATE INDEX IF NOT EXISTS missions_sweep_idx ON missions (status, expires_at)`,
			`CREATE INDEX IF NOT EXISTS fires_sweep_idx ON fires (status, updated_at)`,
		},
	},
	{
		version: 2,
		name:    "daily drawdown accounting and fire failure reason",
		stmts: []string{
			`ALTER TABLE users ADD COLUMN IF NOT EXISTS daily_loss DOUBLE PRECISION NOT NULL DEFAULT 0`,
			`ALTER TABLE users ADD COLUMN IF NOT EXISTS loss_day TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE fires ADD COLUMN IF NOT EXISTS reason TEXT NOT NULL DEFAULT ''`,
		},
	},
}

// Migrate applies everything not yet recorded in schema_migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INT PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := isApplied(ctx, pool, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			for _, stmt := range m.stmts {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
				}
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
				m.version, m.name)
			return err
		})
		if err != nil {
			return err
		}
		logger.Info("applied migration %d: %s", m.version, m.name)
	}
	return nil
}

func isApplied(ctx context.Context, pool *pgxpool.Pool, version int) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`,
		version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check migration %d: %w", version, err)
	}
	return exists, nil
}
