package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/pollsphere/pollsphere/internal/apperror"
	"github.com/pollsphere/pollsphere/internal/model"
	"github.com/pollsphere/pollsphere/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, password_hash, github_id, xp,
	total_polls_created, total_votes_cast, created_at, last_activity`

// Create inserts a new email/password account.
//
// The id and timestamps are assigned here and written back into the caller's
// struct. A duplicate email trips the UNIQUE constraint and is reported as
// apperror.ErrConflict so the service can phrase it for the client.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.LastActivity = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, github_id, xp,
			total_polls_created, total_votes_cast, created_at, last_activity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		nullableGitHubID(user.GitHubID),
		user.XP,
		user.TotalPollsCreated,
		user.TotalVotesCast,
		user.CreatedAt,
		user.LastActivity,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Email, err)
	}

	return nil
}

// GetUserByID retrieves a user by internal id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by login email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// UpsertGitHub creates or refreshes the account linked to a GitHub identity.
//
// First sign-in inserts a new row. Later sign-ins keep the internal id (and the
// XP that hangs off it) and only refresh the username and email, which the
// user may have changed on GitHub in the meantime.
func (db *DB) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == 0 {
		return apperror.ValidationFailed("github_id", "GitHub id is required")
	}

	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	if existingID == "" {
		return db.Create(ctx, user)
	}

	now := time.Now().UTC()
	_, err = db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, last_activity = ? WHERE id = ?`,
		user.Username, user.Email, now, existingID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", existingID, err)
	}

	stored, err := db.GetUserByID(ctx, existingID)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

// TouchActivity records the time of the user's latest sign-in.
func (db *DB) TouchActivity(ctx context.Context, id string, at time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_activity = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: touching user %s: %w", id, err)
	}
	return nil
}

// ApplyXP increments a user's XP and participation counters in one statement.
// Doing the arithmetic in SQL keeps concurrent votes from losing updates.
func (db *DB) ApplyXP(ctx context.Context, id string, delta repository.XPDelta) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET xp = xp + ?,
		     total_polls_created = total_polls_created + ?,
		     total_votes_cast = total_votes_cast + ?
		 WHERE id = ?`,
		delta.XP, delta.PollsCreated, delta.VotesCast, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: applying xp to user %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// TopByXP returns the leaderboard. Ties go to the older account.
func (db *DB) TopByXP(ctx context.Context, limit int) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 ORDER BY xp DESC, created_at ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing leaderboard: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating leaderboard: %w", err)
	}
	return users, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	err := s.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&githubID,
		&u.XP,
		&u.TotalPollsCreated,
		&u.TotalVotesCast,
		&u.CreatedAt,
		&u.LastActivity,
	)
	if err != nil {
		return nil, err
	}
	u.GitHubID = githubID.Int64
	return &u, nil
}

// nullableGitHubID stores 0 as NULL so the UNIQUE index ignores
// email/password accounts.
func nullableGitHubID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
