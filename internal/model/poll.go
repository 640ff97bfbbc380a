package model

import "time"

// Poll is a titled question with an ordered list of options.
//
// TotalVotes should always equal the sum of Options[i].Votes. The server keeps
// that true; readers must still cope with a poll where it momentarily isn't.
type Poll struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Options         []Option  `json:"options"`
	CreatorID       string    `json:"creator_id"`
	CreatorUsername string    `json:"creator_username"`
	TotalVotes      int       `json:"total_votes"`
	CreatedAt       time.Time `json:"created_at"`
	Tags            []string  `json:"tags"`
	IsActive        bool      `json:"is_active"`
}

// Option is one selectable answer within a poll.
// VoterIDs lists every user who picked this option, in vote order.
type Option struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Votes    int      `json:"votes"`
	VoterIDs []string `json:"voter_ids"`
}

// CreatePollRequest is the body of POST /api/polls.
// The creator is passed separately as the user_id query parameter.
type CreatePollRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Options     []string `json:"options"`
	Tags        []string `json:"tags"`
}

// VoteRequest is the body of POST /api/vote.
type VoteRequest struct {
	PollID   string `json:"poll_id"`
	OptionID string `json:"option_id"`
	UserID   string `json:"user_id"`
}

// VoteResponse acknowledges a recorded vote.
type VoteResponse struct {
	Message    string `json:"message"`
	TotalVotes int    `json:"total_votes"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /api/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
