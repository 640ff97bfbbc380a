package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/pollsphere/pollsphere/internal/apperror"
	"github.com/pollsphere/pollsphere/internal/model"
	"github.com/pollsphere/pollsphere/internal/repository"
)

var _ repository.PollRepository = (*DB)(nil)

// queryer is the read half shared by *sql.DB and *sql.Tx, so option loading
// works both inside and outside a transaction.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// CreatePoll inserts a poll and its options in one transaction.
//
// IDs for the poll and every option are generated here (xid: 20 chars,
// URL-safe, time-sortable) and written back into the caller's struct, along
// with the zero tallies a fresh poll starts with.
func (db *DB) CreatePoll(ctx context.Context, poll *model.Poll) error {
	poll.ID = xid.New().String()
	poll.CreatedAt = time.Now().UTC()
	poll.IsActive = true
	poll.TotalVotes = 0
	if poll.Tags == nil {
		poll.Tags = []string{}
	}
	for i := range poll.Options {
		poll.Options[i].ID = xid.New().String()
		poll.Options[i].Votes = 0
		poll.Options[i].VoterIDs = []string{}
	}

	tags, err := json.Marshal(poll.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO polls (id, title, description, creator_id, creator_username, tags, is_active, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, 1, ?)`,
			poll.ID,
			poll.Title,
			poll.Description,
			poll.CreatorID,
			poll.CreatorUsername,
			string(tags),
			poll.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting poll: %w", err)
		}

		for i, opt := range poll.Options {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO poll_options (id, poll_id, position, text) VALUES (?, ?, ?, ?)`,
				opt.ID, poll.ID, i, opt.Text,
			)
			if err != nil {
				return fmt.Errorf("sqlite: inserting option %d of poll %s: %w", i, poll.ID, err)
			}
		}
		return nil
	})
}

// GetPoll retrieves one poll with its options, tallies and voter lists.
func (db *DB) GetPoll(ctx context.Context, id string) (*model.Poll, error) {
	return getPoll(ctx, db.conn, id)
}

// ListPolls returns active polls, newest first, with LIMIT/OFFSET paging.
func (db *DB) ListPolls(ctx context.Context, opts repository.ListOptions) ([]model.Poll, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, description, creator_id, creator_username, tags, is_active, created_at
		 FROM polls
		 WHERE is_active = 1
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing polls: %w", err)
	}

	polls := make([]model.Poll, 0, limit)
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning poll row: %w", err)
		}
		polls = append(polls, *p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating polls: %w", err)
	}
	// Close before the option queries: an in-memory DB runs on a single
	// connection and the open cursor would otherwise hold it.
	rows.Close()

	for i := range polls {
		if err := loadOptions(ctx, db.conn, &polls[i]); err != nil {
			return nil, err
		}
	}
	return polls, nil
}

// RecordVote tallies a single vote inside one transaction.
//
// Checks run in the order the API has always reported them:
//  1. poll exists            → otherwise NotFound("poll")
//  2. user has not voted yet → otherwise Conflict
//  3. option belongs to poll → otherwise NotFound("option")
//
// The (poll_id, user_id) primary key backs up check 2: if two requests from
// the same user race past the SELECT, the second INSERT fails and is reported
// as the same Conflict.
func (db *DB) RecordVote(ctx context.Context, pollID, optionID, userID string) (*model.Poll, error) {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM polls WHERE id = ?`, pollID).Scan(&exists)
		if err == sql.ErrNoRows {
			return apperror.NotFound("poll", pollID)
		}
		if err != nil {
			return fmt.Errorf("sqlite: checking poll %s: %w", pollID, err)
		}

		err = tx.QueryRowContext(ctx,
			`SELECT 1 FROM poll_votes WHERE poll_id = ? AND user_id = ?`, pollID, userID,
		).Scan(&exists)
		if err == nil {
			return apperror.Conflict("vote", pollID)
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("sqlite: checking existing vote: %w", err)
		}

		err = tx.QueryRowContext(ctx,
			`SELECT 1 FROM poll_options WHERE id = ? AND poll_id = ?`, optionID, pollID,
		).Scan(&exists)
		if err == sql.ErrNoRows {
			return apperror.NotFound("option", optionID)
		}
		if err != nil {
			return fmt.Errorf("sqlite: checking option %s: %w", optionID, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO poll_votes (poll_id, option_id, user_id, voted_at) VALUES (?, ?, ?, ?)`,
			pollID, optionID, userID, time.Now().UTC(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("vote", pollID)
			}
			return fmt.Errorf("sqlite: inserting vote: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return db.GetPoll(ctx, pollID)
}

func getPoll(ctx context.Context, q *sql.DB, id string) (*model.Poll, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, title, description, creator_id, creator_username, tags, is_active, created_at
		 FROM polls WHERE id = ?`, id)

	p, err := scanPoll(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("poll", id)
		}
		return nil, fmt.Errorf("sqlite: getting poll %s: %w", id, err)
	}

	if err := loadOptions(ctx, q, p); err != nil {
		return nil, err
	}
	return p, nil
}

func scanPoll(s scanner) (*model.Poll, error) {
	var (
		p    model.Poll
		tags string
	)
	if err := s.Scan(
		&p.ID, &p.Title, &p.Description, &p.CreatorID, &p.CreatorUsername,
		&tags, &p.IsActive, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags of poll %s: %w", p.ID, err)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

// loadOptions fills poll.Options and derives every tally from poll_votes.
//
// One LEFT JOIN returns each option once per vote (or once with a NULL voter
// when it has none), ordered by option position then vote time, so voter lists
// come out in the order the votes were cast.
func loadOptions(ctx context.Context, q queryer, poll *model.Poll) error {
	rows, err := q.QueryContext(ctx,
		`SELECT o.id, o.text, v.user_id
		 FROM poll_options o
		 LEFT JOIN poll_votes v ON v.option_id = o.id
		 WHERE o.poll_id = ?
		 ORDER BY o.position, v.voted_at, v.rowid`,
		poll.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading options of poll %s: %w", poll.ID, err)
	}
	defer rows.Close()

	poll.Options = poll.Options[:0]
	poll.TotalVotes = 0
	for rows.Next() {
		var (
			id, text string
			voter    sql.NullString
		)
		if err := rows.Scan(&id, &text, &voter); err != nil {
			return fmt.Errorf("sqlite: scanning option row: %w", err)
		}

		n := len(poll.Options)
		if n == 0 || poll.Options[n-1].ID != id {
			poll.Options = append(poll.Options, model.Option{ID: id, Text: text, VoterIDs: []string{}})
			n++
		}
		if voter.Valid {
			opt := &poll.Options[n-1]
			opt.VoterIDs = append(opt.VoterIDs, voter.String)
			opt.Votes++
			poll.TotalVotes++
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating options: %w", err)
	}
	return nil
}
