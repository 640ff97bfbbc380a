// Package repository declares the storage contracts the service layer depends on.
//
// Services only ever see these interfaces. The sqlite sub-package provides the
// production implementation; service tests use in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/pollsphere/pollsphere/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// XPDelta is an atomic increment applied to a user's counters.
type XPDelta struct {
	XP           int
	PollsCreated int
	VotesCast    int
}

type UserRepository interface {
	// Create inserts a new user. A duplicate email returns apperror.ErrConflict.
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertGitHub creates or refreshes the account linked to user.GitHubID.
	UpsertGitHub(ctx context.Context, user *model.User) error
	TouchActivity(ctx context.Context, id string, at time.Time) error
	ApplyXP(ctx context.Context, id string, delta XPDelta) error
	// TopByXP returns users ordered by XP, highest first.
	TopByXP(ctx context.Context, limit int) ([]model.User, error)
}

type PollRepository interface {
	CreatePoll(ctx context.Context, poll *model.Poll) error
	GetPoll(ctx context.Context, id string) (*model.Poll, error)
	// ListPolls returns active polls, newest first.
	ListPolls(ctx context.Context, opts ListOptions) ([]model.Poll, error)
	// RecordVote tallies one vote and returns the updated poll.
	// A second vote by the same user on the same poll returns apperror.ErrConflict.
	RecordVote(ctx context.Context, pollID, optionID, userID string) (*model.Poll, error)
}

type AchievementRepository interface {
	// Award stores the achievement and credits its XP bonus, once per user and
	// title. It reports false when the user already held it.
	Award(ctx context.Context, a *model.Achievement) (bool, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Achievement, error)
}
