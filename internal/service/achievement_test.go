package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollsphere/pollsphere/internal/apperror"
	"github.com/pollsphere/pollsphere/internal/model"
)

func TestPopularityBonus(t *testing.T) {
	tests := []struct {
		votes int
		want  int
	}{
		{0, 0},
		{9, 0},
		{10, 10},
		{24, 10},
		{25, 25},
		{50, 50},
		{99, 50},
		{100, 100},
		{5000, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PopularityBonus(tt.votes), "PopularityBonus(%d)", tt.votes)
	}
}

func TestAward_OncePerUser(t *testing.T) {
	users := newFakeUserRepo()
	u := users.add(model.User{Username: "alice"})
	svc := NewAchievementService(newFakeAchievementRepo(users), discardLogger())

	first, err := svc.Award(context.Background(), u.ID, FirstPoll)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := svc.Award(context.Background(), u.ID, FirstPoll)
	require.NoError(t, err)
	assert.False(t, again)

	stored, _ := users.GetUserByID(context.Background(), u.ID)
	assert.Equal(t, 10, stored.XP, "bonus credited once")
}

func TestAward_UnknownKind(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewAchievementService(newFakeAchievementRepo(users), discardLogger())

	_, err := svc.Award(context.Background(), "user-1", AchievementKind("nope"))
	assert.Error(t, err)
}

func TestAchievementList(t *testing.T) {
	users := newFakeUserRepo()
	u := users.add(model.User{Username: "alice"})
	svc := NewAchievementService(newFakeAchievementRepo(users), discardLogger())

	empty, err := svc.List(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, _ = svc.Award(context.Background(), u.ID, FirstPoll)
	_, _ = svc.Award(context.Background(), u.ID, VoteMaster)

	list, err := svc.List(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Vote Master", list[0].Title, "newest first")
	assert.Equal(t, "🗳️", list[0].BadgeIcon)

	_, err = svc.List(context.Background(), " ")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
