package dal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresDAL implements DraftDAL using PostgreSQL
type PostgresDAL struct {
	*sqlStore
}

const pqUniqueViolation = "23505"

// NewPostgresDAL creates a new PostgreSQL data access layer optimized for CloudNativePG
func NewPostgresDAL(connString string) (*PostgresDAL, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	// CloudNativePG default max_connections is 100
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	// Recycle connections so failovers are picked up
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Retry the first ping while Kubernetes DNS settles
	maxRetries := 5
	retryDelay := 5 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()

		if lastErr == nil {
			break
		}
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	if lastErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres after %d retries: %w", maxRetries, lastErr)
	}

	dal := &PostgresDAL{sqlStore: &sqlStore{
		db:       db,
		rebind:   dollarParams,
		isUnique: isPostgresUnique,
	}}

	if err := dal.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

func isPostgresUnique(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func (p *PostgresDAL) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rounds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		team_type_restriction TEXT NOT NULL DEFAULT 'both',
		game_type_restriction TEXT NOT NULL DEFAULT '',
		salary_cap INTEGER NOT NULL DEFAULT 50,
		start_date BIGINT NOT NULL,
		end_date BIGINT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS teams (
		round_id TEXT NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		logo_url TEXT NOT NULL DEFAULT '',
		game_type TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		price INTEGER,
		match_volume INTEGER NOT NULL DEFAULT 0,
		recent_win_rate DOUBLE PRECISION,
		abandon_rate DOUBLE PRECISION,
		missed_percent DOUBLE PRECISION,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (round_id, id)
	);

	CREATE TABLE IF NOT EXISTS bonus_credits (
		user_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL CHECK (balance >= 0)
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		round_id TEXT NOT NULL REFERENCES rounds(id),
		payload JSONB NOT NULL,
		bonus_credits_spent INTEGER NOT NULL DEFAULT 0,
		submitted_at BIGINT NOT NULL,
		UNIQUE (user_id, round_id)
	);

	CREATE INDEX IF NOT EXISTS idx_teams_round_name ON teams(round_id, LOWER(name));
	CREATE INDEX IF NOT EXISTS idx_rounds_start ON rounds(start_date);
	`

	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return p.seedIfEmpty(ctx)
}
