// Package model defines the data structures shared by the PollSphere server and client.
//
// The same structs travel both ways over the wire: the server encodes them, the
// client decodes them. JSON field names are snake_case because that is the
// contract the API has always exposed (the browser client reads `voter_ids`,
// `total_votes`, `creator_username`, ...).
package model

import "time"

// User is a registered PollSphere account.
//
// Only the public profile fields are serialized. PasswordHash, GitHubID and
// LastActivity stay on the server. The `json:"-"` tag tells encoding/json to
// skip them entirely, so they can never leak into a response by accident.
//
// Token is populated only on the login/register responses. The client keeps it
// together with the rest of the record in durable storage and replays it as a
// bearer token on writes.
type User struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	XP                int       `json:"xp"`
	TotalPollsCreated int       `json:"total_polls_created"`
	TotalVotesCast    int       `json:"total_votes_cast"`
	CreatedAt         time.Time `json:"created_at"`
	Token             string    `json:"token,omitempty"`

	PasswordHash string    `json:"-"`
	GitHubID     int64     `json:"-"` // 0 for email/password accounts
	LastActivity time.Time `json:"-"`
}

// Profile returns a copy of the user without credentials or session data.
// Used by endpoints that expose someone else's record (profile, leaderboard).
func (u *User) Profile() User {
	return User{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		XP:                u.XP,
		TotalPollsCreated: u.TotalPollsCreated,
		TotalVotesCast:    u.TotalVotesCast,
		CreatedAt:         u.CreatedAt,
	}
}

// LeaderboardEntry is one ranked row of the leaderboard.
// The server returns user profiles already sorted by XP; rank is positional.
type LeaderboardEntry struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	XP                int       `json:"xp"`
	TotalPollsCreated int       `json:"total_polls_created"`
	TotalVotesCast    int       `json:"total_votes_cast"`
	CreatedAt         time.Time `json:"created_at"`
}

// Achievement is a one-off badge awarded for a participation milestone.
type Achievement struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	BadgeIcon   string    `json:"badge_icon"`
	EarnedAt    time.Time `json:"earned_at"`
	XPBonus     int       `json:"xp_bonus"`
}
