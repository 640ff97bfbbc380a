package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/pollsphere/pollsphere/internal/model"
	"github.com/pollsphere/pollsphere/internal/repository"
)

var _ repository.AchievementRepository = (*DB)(nil)

// Award inserts the achievement and credits its XP bonus atomically.
//
// INSERT OR IGNORE against the UNIQUE(user_id, title) constraint makes the
// award idempotent: RowsAffected tells us whether this call was the one that
// earned it, and only then is the bonus added.
func (db *DB) Award(ctx context.Context, a *model.Achievement) (bool, error) {
	a.ID = xid.New().String()
	a.EarnedAt = time.Now().UTC()

	awarded := false
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO achievements
				(id, user_id, title, description, badge_icon, xp_bonus, earned_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.UserID, a.Title, a.Description, a.BadgeIcon, a.XPBonus, a.EarnedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting achievement %q for %s: %w", a.Title, a.UserID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return nil // already held
		}
		awarded = true

		if a.XPBonus == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET xp = xp + ? WHERE id = ?`, a.XPBonus, a.UserID,
		); err != nil {
			return fmt.Errorf("sqlite: crediting achievement bonus to %s: %w", a.UserID, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return awarded, nil
}

// ListByUser returns a user's achievements, most recent first.
func (db *DB) ListByUser(ctx context.Context, userID string, limit int) ([]model.Achievement, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, title, description, badge_icon, xp_bonus, earned_at
		 FROM achievements
		 WHERE user_id = ?
		 ORDER BY earned_at DESC, rowid DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing achievements of %s: %w", userID, err)
	}
	defer rows.Close()

	out := []model.Achievement{}
	for rows.Next() {
		var a model.Achievement
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Title, &a.Description, &a.BadgeIcon, &a.XPBonus, &a.EarnedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning achievement row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating achievements: %w", err)
	}
	return out, nil
}
