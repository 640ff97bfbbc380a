// Package sqlite implements the repository interfaces on top of SQLite.
//
// The driver is modernc.org/sqlite, a pure Go build of SQLite, so no C
// toolchain is needed. Tests open ":memory:" and get a fresh database each.
//
// TABLE LAYOUT:
//
//	users         one row per account, XP counters live here
//	polls         one row per poll, tags stored as a JSON array
//	poll_options  ordered options (position column)
//	poll_votes    one row per (poll, user); the primary key forbids double votes
//	achievements  one row per (user, title)
//
// Vote counts, voter lists and poll totals are never stored: they are derived
// from poll_votes on read, so `total_votes == Σ option.votes` holds by
// construction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository interface.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/pollsphere.db"  → file-based database
//   - ":memory:"            → in-memory database for tests
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database lives and dies with its connection. If the pool
	// opened a second connection it would see an empty database, so pin it to one.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers (GET /api/polls) proceed while a vote is being written.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	// Concurrent writers wait up to 5s for the lock instead of failing with SQLITE_BUSY.
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. Every statement is idempotent, so it is safe to
// run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                  TEXT PRIMARY KEY,
			username            TEXT NOT NULL,
			email               TEXT NOT NULL UNIQUE,
			password_hash       TEXT NOT NULL DEFAULT '',
			github_id           INTEGER UNIQUE,
			xp                  INTEGER NOT NULL DEFAULT 0,
			total_polls_created INTEGER NOT NULL DEFAULT 0,
			total_votes_cast    INTEGER NOT NULL DEFAULT 0,
			created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_activity       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_users_xp ON users(xp DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS polls (
			id               TEXT PRIMARY KEY,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			creator_id       TEXT NOT NULL REFERENCES users(id),
			creator_username TEXT NOT NULL,
			tags             TEXT NOT NULL DEFAULT '[]',
			is_active        INTEGER NOT NULL DEFAULT 1,
			created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_polls_created_at ON polls(created_at);

		CREATE TABLE IF NOT EXISTS poll_options (
			id       TEXT PRIMARY KEY,
			poll_id  TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			text     TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_poll_options_poll_id ON poll_options(poll_id, position);

		CREATE TABLE IF NOT EXISTS poll_votes (
			poll_id   TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
			option_id TEXT NOT NULL REFERENCES poll_options(id) ON DELETE CASCADE,
			user_id   TEXT NOT NULL REFERENCES users(id),
			voted_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (poll_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_poll_votes_option_id ON poll_votes(option_id);
	`)
	if err != nil {
		return fmt.Errorf("creating poll tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS achievements (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id),
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			badge_icon  TEXT NOT NULL DEFAULT '',
			xp_bonus    INTEGER NOT NULL DEFAULT 0,
			earned_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, title)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating achievements table: %w", err)
	}

	return nil
}

// withTx runs fn inside a transaction, committing on success and rolling back
// on any error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE / PRIMARY KEY constraint failure.
// The driver surfaces these as plain errors whose text starts with
// "constraint failed: UNIQUE constraint failed: ...".
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
