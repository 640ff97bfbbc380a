package service

import (
	"context"
	"fmt"

	"github.com/pollsphere/pollsphere/internal/model"
	"github.com/pollsphere/pollsphere/internal/repository"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// LeaderboardService ranks users by XP.
type LeaderboardService struct {
	users repository.UserRepository
}

func NewLeaderboardService(users repository.UserRepository) *LeaderboardService {
	return &LeaderboardService{users: users}
}

// Top returns up to limit users, highest XP first.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 || limit > MaxLeaderboardLimit {
		limit = DefaultLeaderboardLimit
	}

	users, err := s.users.TopByXP(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service/leaderboard: %w", err)
	}

	entries := make([]model.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, model.LeaderboardEntry{
			ID:                u.ID,
			Username:          u.Username,
			Email:             u.Email,
			XP:                u.XP,
			TotalPollsCreated: u.TotalPollsCreated,
			TotalVotesCast:    u.TotalVotesCast,
			CreatedAt:         u.CreatedAt,
		})
	}
	return entries, nil
}
