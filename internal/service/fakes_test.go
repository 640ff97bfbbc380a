package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pollsphere/pollsphere/internal/apperror"
	"github.com/pollsphere/pollsphere/internal/model"
	"github.com/pollsphere/pollsphere/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Hand-written in-memory repositories. Each one behaves like the SQLite
// implementation for the paths the services use, and exposes an error field
// to simulate a database failure.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int

	createErr  error
	upsertErr  error
	applyXPErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now().Add(time.Duration(f.nextID) * time.Millisecond)
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) UpsertGitHub(ctx context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	for _, u := range f.users {
		if u.GitHubID == user.GitHubID {
			u.Username = user.Username
			u.Email = user.Email
			*user = *u
			f.mu.Unlock()
			return nil
		}
	}
	f.mu.Unlock()
	return f.Create(ctx, user)
}

func (f *fakeUserRepo) TouchActivity(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.LastActivity = at
	}
	return nil
}

func (f *fakeUserRepo) ApplyXP(_ context.Context, id string, delta repository.XPDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyXPErr != nil {
		return f.applyXPErr
	}
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.XP += delta.XP
	u.TotalPollsCreated += delta.PollsCreated
	u.TotalVotesCast += delta.VotesCast
	return nil
}

func (f *fakeUserRepo) TopByXP(_ context.Context, limit int) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].XP != out[j].XP {
			return out[i].XP > out[j].XP
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// add seeds a user directly, bypassing the service.
func (f *fakeUserRepo) add(u model.User) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", f.nextID)
	}
	if u.Email == "" {
		u.Email = u.ID + "@example.com"
	}
	u.CreatedAt = time.Now().Add(time.Duration(f.nextID) * time.Millisecond)
	f.users[u.ID] = &u
	return &u
}

type fakePollRepo struct {
	mu     sync.Mutex
	polls  []*model.Poll
	voted  map[string]bool // pollID + "/" + userID
	nextID int

	listOpts  repository.ListOptions
	createErr error
}

func newFakePollRepo() *fakePollRepo {
	return &fakePollRepo{voted: make(map[string]bool)}
}

func (f *fakePollRepo) CreatePoll(_ context.Context, poll *model.Poll) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	poll.ID = fmt.Sprintf("poll-%d", f.nextID)
	poll.CreatedAt = time.Now()
	for i := range poll.Options {
		poll.Options[i].ID = fmt.Sprintf("%s-opt-%d", poll.ID, i)
		poll.Options[i].VoterIDs = []string{}
	}
	copied := *poll
	copied.Options = append([]model.Option(nil), poll.Options...)
	f.polls = append(f.polls, &copied)
	return nil
}

func (f *fakePollRepo) GetPoll(_ context.Context, id string) (*model.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.find(id)
	if p == nil {
		return nil, apperror.NotFound("poll", id)
	}
	return clonePoll(p), nil
}

func (f *fakePollRepo) ListPolls(_ context.Context, opts repository.ListOptions) ([]model.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listOpts = opts
	out := []model.Poll{}
	for i := len(f.polls) - 1; i >= 0; i-- {
		out = append(out, *clonePoll(f.polls[i]))
	}
	return out, nil
}

func (f *fakePollRepo) RecordVote(_ context.Context, pollID, optionID, userID string) (*model.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.find(pollID)
	if p == nil {
		return nil, apperror.NotFound("poll", pollID)
	}
	key := pollID + "/" + userID
	if f.voted[key] {
		return nil, apperror.Conflict("vote", key)
	}
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			p.Options[i].Votes++
			p.Options[i].VoterIDs = append(p.Options[i].VoterIDs, userID)
			p.TotalVotes++
			f.voted[key] = true
			return clonePoll(p), nil
		}
	}
	return nil, apperror.NotFound("option", optionID)
}

func (f *fakePollRepo) find(id string) *model.Poll {
	for _, p := range f.polls {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// setTotal fakes a poll that already has n votes, all on the first option.
func (f *fakePollRepo) setTotal(pollID string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.find(pollID)
	p.Options[0].Votes = n
	p.TotalVotes = n
}

func clonePoll(p *model.Poll) *model.Poll {
	copied := *p
	copied.Options = make([]model.Option, len(p.Options))
	for i, o := range p.Options {
		o.VoterIDs = append([]string{}, o.VoterIDs...)
		copied.Options[i] = o
	}
	return &copied
}

// fakeAchievementRepo credits the bonus through the user fake, like the
// SQLite implementation does inside its transaction.
type fakeAchievementRepo struct {
	mu       sync.Mutex
	users    *fakeUserRepo
	earned   []model.Achievement
	awardErr error
}

func newFakeAchievementRepo(users *fakeUserRepo) *fakeAchievementRepo {
	return &fakeAchievementRepo{users: users}
}

func (f *fakeAchievementRepo) Award(ctx context.Context, a *model.Achievement) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.awardErr != nil {
		return false, f.awardErr
	}
	for _, e := range f.earned {
		if e.UserID == a.UserID && e.Title == a.Title {
			return false, nil
		}
	}
	a.ID = fmt.Sprintf("ach-%d", len(f.earned)+1)
	a.EarnedAt = time.Now()
	f.earned = append(f.earned, *a)
	if err := f.users.ApplyXP(ctx, a.UserID, repository.XPDelta{XP: a.XPBonus}); err != nil {
		return false, err
	}
	return true, nil
}

func (f *fakeAchievementRepo) ListByUser(_ context.Context, userID string, limit int) ([]model.Achievement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Achievement{}
	for i := len(f.earned) - 1; i >= 0 && len(out) < limit; i-- {
		if f.earned[i].UserID == userID {
			out = append(out, f.earned[i])
		}
	}
	return out, nil
}

func (f *fakeAchievementRepo) titles(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.earned {
		if e.UserID == userID {
			out = append(out, e.Title)
		}
	}
	return out
}
