package dal

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

// SQLiteDAL implements DraftDAL using SQLite
type SQLiteDAL struct {
	*sqlStore
}

// NewSQLiteDAL creates a new SQLite data access layer
func NewSQLiteDAL(dbPath string) (*SQLiteDAL, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY inside transactions
	db.SetMaxOpenConns(1)

	dal := &SQLiteDAL{sqlStore: &sqlStore{
		db:       db,
		rebind:   func(q string) string { return q },
		isUnique: isSQLiteUnique,
	}}

	if err := dal.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

func isSQLiteUnique(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func (s *SQLiteDAL) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rounds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		team_type_restriction TEXT NOT NULL DEFAULT 'both',
		game_type_restriction TEXT NOT NULL DEFAULT '',
		salary_cap INTEGER NOT NULL DEFAULT 50,
		start_date INTEGER NOT NULL,
		end_date INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS teams (
		round_id TEXT NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		logo_url TEXT NOT NULL DEFAULT '',
		game_type TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		price INTEGER,
		match_volume INTEGER NOT NULL DEFAULT 0,
		recent_win_rate REAL,
		abandon_rate REAL,
		missed_percent REAL,
		PRIMARY KEY (round_id, id),
		FOREIGN KEY (round_id) REFERENCES rounds(id)
	);

	CREATE TABLE IF NOT EXISTS bonus_credits (
		user_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL CHECK (balance >= 0)
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		round_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		bonus_credits_spent INTEGER NOT NULL DEFAULT 0,
		submitted_at INTEGER NOT NULL,
		UNIQUE (user_id, round_id)
	);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return s.seedIfEmpty(ctx)
}
