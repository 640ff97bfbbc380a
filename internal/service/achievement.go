package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pollsphere/pollsphere/internal/apperror"
	"github.com/pollsphere/pollsphere/internal/model"
	"github.com/pollsphere/pollsphere/internal/repository"
)

// AchievementKind names a milestone in the achievement catalog.
type AchievementKind string

const (
	FirstPoll       AchievementKind = "first_poll"
	VoteMaster      AchievementKind = "vote_master"
	PopularCreator  AchievementKind = "popular_creator"
	ViralCreator    AchievementKind = "viral_creator"
	ProlificCreator AchievementKind = "prolific_creator"
)

// MaxAchievementsListed caps GET /api/users/{id}/achievements.
const MaxAchievementsListed = 100

type achievementTemplate struct {
	Title       string
	Description string
	BadgeIcon   string
	XPBonus     int
}

// catalog is the fixed set of achievements. Titles double as the uniqueness
// key in storage, so changing one re-awards it to everybody.
var catalog = map[AchievementKind]achievementTemplate{
	FirstPoll:       {"First Poll Creator", "Created your first poll!", "🎯", 10},
	VoteMaster:      {"Vote Master", "Cast 10 votes!", "🗳️", 20},
	PopularCreator:  {"Popular Creator", "Poll reached 50 votes!", "🔥", 50},
	ViralCreator:    {"Viral Creator", "Poll reached 100 votes!", "🚀", 100},
	ProlificCreator: {"Prolific Creator", "Created 10 polls!", "📊", 75},
}

// PopularityBonus is the extra XP a creator earns when a poll goes viral,
// stepped by the poll's vote count.
func PopularityBonus(totalVotes int) int {
	switch {
	case totalVotes >= 100:
		return 100
	case totalVotes >= 50:
		return 50
	case totalVotes >= 25:
		return 25
	case totalVotes >= 10:
		return 10
	}
	return 0
}

// AchievementService awards catalog achievements and lists them.
type AchievementService struct {
	repo   repository.AchievementRepository
	logger *slog.Logger
}

func NewAchievementService(repo repository.AchievementRepository, logger *slog.Logger) *AchievementService {
	return &AchievementService{repo: repo, logger: logger}
}

// Award grants kind to userID if they don't hold it yet. It reports whether
// this call granted it.
func (s *AchievementService) Award(ctx context.Context, userID string, kind AchievementKind) (bool, error) {
	tmpl, ok := catalog[kind]
	if !ok {
		return false, fmt.Errorf("service/achievement: unknown achievement %q", kind)
	}

	a := &model.Achievement{
		UserID:      userID,
		Title:       tmpl.Title,
		Description: tmpl.Description,
		BadgeIcon:   tmpl.BadgeIcon,
		XPBonus:     tmpl.XPBonus,
	}
	awarded, err := s.repo.Award(ctx, a)
	if err != nil {
		return false, fmt.Errorf("service/achievement: awarding %s to %s: %w", kind, userID, err)
	}
	if awarded {
		s.logger.Info("achievement awarded",
			slog.String("userID", userID),
			slog.String("title", a.Title),
			slog.Int("xpBonus", a.XPBonus),
		)
	}
	return awarded, nil
}

// List returns a user's achievements, newest first.
func (s *AchievementService) List(ctx context.Context, userID string) ([]model.Achievement, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.ValidationFailed("user_id", "user id is required")
	}

	list, err := s.repo.ListByUser(ctx, userID, MaxAchievementsListed)
	if err != nil {
		return nil, fmt.Errorf("service/achievement: listing for %s: %w", userID, err)
	}
	return list, nil
}

// awardQuietly is used after the triggering action has already been stored:
// a failed award is logged but must not turn a recorded vote into an error.
func (s *AchievementService) awardQuietly(ctx context.Context, userID string, kind AchievementKind) {
	if _, err := s.Award(ctx, userID, kind); err != nil {
		s.logger.Error("failed to award achievement",
			slog.String("userID", userID),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
	}
}
