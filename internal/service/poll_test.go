package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollsphere/pollsphere/internal/apperror"
	"github.com/pollsphere/pollsphere/internal/model"
)

type pollFixture struct {
	users        *fakeUserRepo
	polls        *fakePollRepo
	achievements *fakeAchievementRepo
	svc          *PollService
}

func newPollFixture() *pollFixture {
	users := newFakeUserRepo()
	polls := newFakePollRepo()
	achievements := newFakeAchievementRepo(users)
	logger := discardLogger()

	return &pollFixture{
		users:        users,
		polls:        polls,
		achievements: achievements,
		svc:          NewPollService(polls, users, NewAchievementService(achievements, logger), logger),
	}
}

func (f *pollFixture) xp(t *testing.T, id string) *model.User {
	t.Helper()
	u, err := f.users.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func validPoll() model.CreatePollRequest {
	return model.CreatePollRequest{
		Title:       "Best editor?",
		Description: "Settle it",
		Options:     []string{"vim", "emacs"},
		Tags:        []string{"tools"},
	}
}

// =========================================================================
// Create TESTS
// =========================================================================

func TestCreate_StoresPollAndCreditsCreator(t *testing.T) {
	f := newPollFixture()
	creator := f.users.add(model.User{Username: "alice"})

	poll, err := f.svc.Create(context.Background(), creator.ID, validPoll())
	require.NoError(t, err)

	assert.NotEmpty(t, poll.ID)
	assert.Equal(t, "alice", poll.CreatorUsername)
	assert.Equal(t, creator.ID, poll.CreatorID)
	assert.True(t, poll.IsActive)
	assert.Equal(t, 0, poll.TotalVotes)
	require.Len(t, poll.Options, 2)
	for _, o := range poll.Options {
		assert.NotEmpty(t, o.ID)
		assert.Equal(t, 0, o.Votes)
	}

	// +20 for the poll, +10 for First Poll Creator.
	u := f.xp(t, creator.ID)
	assert.Equal(t, PollCreateXP+10, u.XP)
	assert.Equal(t, 1, u.TotalPollsCreated)
	assert.Equal(t, []string{"First Poll Creator"}, f.achievements.titles(creator.ID))
}

func TestCreate_TrimsAndFiltersOptionsAndTags(t *testing.T) {
	f := newPollFixture()
	creator := f.users.add(model.User{Username: "alice"})

	req := model.CreatePollRequest{
		Title:       "  Lunch?  ",
		Description: "where to",
		Options: []string{" pizza ", "", "   ", "sushi"},
		Tags:        []string{" food", "", "fun "},
	}
	poll, err := f.svc.Create(context.Background(), creator.ID, req)
	require.NoError(t, err)

	assert.Equal(t, "Lunch?", poll.Title)
	require.Len(t, poll.Options, 2)
	assert.Equal(t, "pizza", poll.Options[0].Text)
	assert.Equal(t, "sushi", poll.Options[1].Text)
	assert.Equal(t, []string{"food", "fun"}, poll.Tags)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		user  string
		req   model.CreatePollRequest
		field string
	}{
		{"missing user", "", validPoll(), "user_id"},
		{"blank title", "user-1", model.CreatePollRequest{Title: " ", Description: "d", Options: []string{"a", "b"}}, "title"},
		{"blank description", "user-1", model.CreatePollRequest{Title: "t", Options: []string{"a", "b"}}, "description"},
		{"one option", "user-1", model.CreatePollRequest{Title: "t", Description: "d", Options: []string{"a", " "}}, "options"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPollFixture()
			f.users.add(model.User{ID: "user-1", Username: "u"})

			_, err := f.svc.Create(context.Background(), tt.user, tt.req)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestCreate_UnknownCreator(t *testing.T) {
	f := newPollFixture()

	_, err := f.svc.Create(context.Background(), "ghost", validPoll())
	require.ErrorIs(t, err, apperror.ErrNotFound)
	assert.EqualError(t, err, "User not found")
}

func TestCreate_TenthPollAwardsProlificCreator(t *testing.T) {
	f := newPollFixture()
	creator := f.users.add(model.User{Username: "busy"})

	for i := 0; i < 10; i++ {
		_, err := f.svc.Create(context.Background(), creator.ID, validPoll())
		require.NoError(t, err)
	}

	u := f.xp(t, creator.ID)
	assert.Equal(t, 10, u.TotalPollsCreated)
	assert.Equal(t, 10*PollCreateXP+10+75, u.XP)
	assert.ElementsMatch(t, []string{"First Poll Creator", "Prolific Creator"}, f.achievements.titles(creator.ID))
}

func TestCreate_AchievementFailureDoesNotFailCreate(t *testing.T) {
	f := newPollFixture()
	f.achievements.awardErr = errors.New("disk full")
	creator := f.users.add(model.User{Username: "alice"})

	_, err := f.svc.Create(context.Background(), creator.ID, validPoll())
	require.NoError(t, err)
	assert.Equal(t, PollCreateXP, f.xp(t, creator.ID).XP)
}

// =========================================================================
// List / Get TESTS
// =========================================================================

func TestList_ClampsPaging(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		skip       int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", 0, 0, DefaultPollLimit, 0},
		{"explicit", 5, 10, 5, 10},
		{"too large", MaxPollLimit + 1, 0, DefaultPollLimit, 0},
		{"negative skip", 5, -3, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPollFixture()

			polls, err := f.svc.List(context.Background(), tt.limit, tt.skip)
			require.NoError(t, err)
			assert.NotNil(t, polls)
			assert.Equal(t, tt.wantLimit, f.polls.listOpts.Limit)
			assert.Equal(t, tt.wantOffset, f.polls.listOpts.Offset)
		})
	}
}

func TestGet(t *testing.T) {
	f := newPollFixture()
	creator := f.users.add(model.User{Username: "alice"})
	created, err := f.svc.Create(context.Background(), creator.ID, validPoll())
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)

	_, err = f.svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, apperror.ErrNotFound)
	assert.EqualError(t, err, "Poll not found")
}

// =========================================================================
// Vote TESTS
// =========================================================================

func TestVote_RecordsAndCreditsVoter(t *testing.T) {
	f := newPollFixture()
	creator := f.users.add(model.User{Username: "alice"})
	voter := f.users.add(model.User{Username: "bob"})
	poll, err := f.svc.Create(context.Background(), creator.ID, validPoll())
	require.NoError(t, err)

	resp, err := f.svc.Vote(context.Background(), model.VoteRequest{
		PollID:   poll.ID,
		OptionID: poll.Options[1].ID,
		UserID:   voter.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Vote recorded successfully", resp.Message)
	assert.Equal(t, 1, resp.TotalVotes)

	u := f.xp(t, voter.ID)
	assert.Equal(t, VoteXP, u.XP)
	assert.Equal(t, 1, u.TotalVotesCast)

	stored, err := f.svc.Get(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{voter.ID}, stored.Options[1].VoterIDs)
}

func TestVote_SecondVoteRejected(t *testing.T) {
	f := newPollFixture()
	creator := f.users.add(model.User{Username: "alice"})
	poll, err := f.svc.Create(context.Background(), creator.ID, validPoll())
	require.NoError(t, err)

	req := model.VoteRequest{PollID: poll.ID, OptionID: poll.Options[0].ID, UserID: creator.ID}
	_, err = f.svc.Vote(context.Background(), req)
	require.NoError(t, err)

	req.OptionID = poll.Options[1].ID
	_, err = f.svc.Vote(context.Background(), req)
	require.ErrorIs(t, err, apperror.ErrValidation)
	assert.EqualError(t, err, "User has already voted on this poll")

	// XP was credited once.
	assert.Equal(t, 1, f.xp(t, creator.ID).TotalVotesCast)
}

func TestVote_ConcurrentDoubleVoteCountsOnce(t *testing.T) {
	f := newPollFixture()
	creator := f.users.add(model.User{Username: "alice"})
	poll, err := f.svc.Create(context.Background(), creator.ID, validPoll())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Vote(context.Background(), model.VoteRequest{
				PollID: poll.ID, OptionID: poll.Options[0].ID, UserID: creator.ID,
			})
		}()
	}
	wg.Wait()

	stored, err := f.svc.Get(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TotalVotes)
	assert.Equal(t, 1, f.xp(t, creator.ID).TotalVotesCast)
}

func TestVote_NotFound(t *testing.T) {
	f := newPollFixture()
	creator := f.users.add(model.User{Username: "alice"})
	poll, err := f.svc.Create(context.Background(), creator.ID, validPoll())
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     model.VoteRequest
		wantMsg string
	}{
		{"unknown user", model.VoteRequest{PollID: poll.ID, OptionID: poll.Options[0].ID, UserID: "ghost"}, "User not found"},
		{"unknown poll", model.VoteRequest{PollID: "nope", OptionID: "x", UserID: creator.ID}, "Poll not found"},
		{"unknown option", model.VoteRequest{PollID: poll.ID, OptionID: "nope", UserID: creator.ID}, "Option not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Vote(context.Background(), tt.req)
			require.ErrorIs(t, err, apperror.ErrNotFound)
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestVote_MissingFields(t *testing.T) {
	f := newPollFixture()

	for _, req := range []model.VoteRequest{
		{OptionID: "o", UserID: "u"},
		{PollID: "p", UserID: "u"},
		{PollID: "p", OptionID: "o"},
	} {
		_, err := f.svc.Vote(context.Background(), req)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	}
}

func TestVote_TenthVoteAwardsVoteMaster(t *testing.T) {
	f := newPollFixture()
	creator := f.users.add(model.User{Username: "alice"})
	voter := f.users.add(model.User{Username: "bob", TotalVotesCast: 9})
	poll, err := f.svc.Create(context.Background(), creator.ID, validPoll())
	require.NoError(t, err)

	_, err = f.svc.Vote(context.Background(), model.VoteRequest{PollID: poll.ID, OptionID: poll.Options[0].ID, UserID: voter.ID})
	require.NoError(t, err)

	assert.Equal(t, []string{"Vote Master"}, f.achievements.titles(voter.ID))
	assert.Equal(t, VoteXP+20, f.xp(t, voter.ID).XP)
}

func TestVote_PopularityMilestones(t *testing.T) {
	tests := []struct {
		name       string
		before     int
		wantTitles []string
		wantBonus  int
	}{
		{"below milestones", 10, nil, 0},
		{"50th vote", 49, []string{"Popular Creator"}, 50},
		{"100th vote", 99, []string{"Viral Creator"}, 100 + PopularityBonus(100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPollFixture()
			creator := f.users.add(model.User{Username: "alice", TotalPollsCreated: 3})
			voter := f.users.add(model.User{Username: "bob"})
			poll, err := f.svc.Create(context.Background(), creator.ID, validPoll())
			require.NoError(t, err)
			f.polls.setTotal(poll.ID, tt.before)
			baseXP := f.xp(t, creator.ID).XP

			_, err = f.svc.Vote(context.Background(), model.VoteRequest{PollID: poll.ID, OptionID: poll.Options[1].ID, UserID: voter.ID})
			require.NoError(t, err)

			assert.Equal(t, tt.wantTitles, f.achievements.titles(creator.ID))
			assert.Equal(t, baseXP+tt.wantBonus, f.xp(t, creator.ID).XP)
		})
	}
}

func TestVote_XPFailureStillRecordsVote(t *testing.T) {
	f := newPollFixture()
	creator := f.users.add(model.User{Username: "alice"})
	poll, err := f.svc.Create(context.Background(), creator.ID, validPoll())
	require.NoError(t, err)
	f.users.applyXPErr = errors.New("locked")

	resp, err := f.svc.Vote(context.Background(), model.VoteRequest{PollID: poll.ID, OptionID: poll.Options[0].ID, UserID: creator.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalVotes)
}
