package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pollsphere/pollsphere/internal/apperror"
	"github.com/pollsphere/pollsphere/internal/model"
	"github.com/pollsphere/pollsphere/internal/repository"
)

// XP rewards for participation.
const (
	PollCreateXP = 20
	VoteXP       = 5
)

// Listing bounds for GET /api/polls.
const (
	DefaultPollLimit = 20
	MaxPollLimit     = 100
	MinPollOptions   = 2
)

// Milestones that trigger achievements.
const (
	prolificPollCount = 10
	voteMasterCount   = 10
	popularVoteCount  = 50
	viralVoteCount    = 100
)

// PollService creates polls, lists them and records votes.
//
// Every write is followed by XP bookkeeping and achievement checks. Those run
// after the poll or vote is stored: if one of them fails the primary action
// still succeeded, so the failure is logged instead of returned.
type PollService struct {
	polls        repository.PollRepository
	users        repository.UserRepository
	achievements *AchievementService
	logger       *slog.Logger
}

func NewPollService(
	polls repository.PollRepository,
	users repository.UserRepository,
	achievements *AchievementService,
	logger *slog.Logger,
) *PollService {
	return &PollService{
		polls:        polls,
		users:        users,
		achievements: achievements,
		logger:       logger,
	}
}

// Create stores a new poll authored by creatorID.
//
// Title and description are required. Option texts are trimmed and blank ones dropped; at least two must remain.
// Tags get the same treatment.
func (s *PollService) Create(ctx context.Context, creatorID string, req model.CreatePollRequest) (*model.Poll, error) {
	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return nil, apperror.ValidationFailed("user_id", "user id is required")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "Title is required")
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, apperror.ValidationFailed("description", "Description is required")
	}

	options := compact(req.Options)
	if len(options) < MinPollOptions {
		return nil, apperror.ValidationFailed("options",
			fmt.Sprintf("A poll needs at least %d options", MinPollOptions))
	}

	creator, err := s.users.GetUserByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	poll := &model.Poll{
		Title:           title,
		Description:     description,
		CreatorID:       creator.ID,
		CreatorUsername: creator.Username,
		Tags:            compact(req.Tags),
		IsActive:        true,
	}
	for _, text := range options {
		poll.Options = append(poll.Options, model.Option{Text: text})
	}

	if err := s.polls.CreatePoll(ctx, poll); err != nil {
		return nil, fmt.Errorf("service/poll: creating poll: %w", err)
	}

	s.logger.Info("poll created",
		slog.String("pollID", poll.ID),
		slog.String("creatorID", creator.ID),
		slog.Int("options", len(poll.Options)),
	)

	s.credit(ctx, creator.ID, repository.XPDelta{XP: PollCreateXP, PollsCreated: 1})

	switch creator.TotalPollsCreated + 1 {
	case 1:
		s.achievements.awardQuietly(ctx, creator.ID, FirstPoll)
	case prolificPollCount:
		s.achievements.awardQuietly(ctx, creator.ID, ProlificCreator)
	}

	return poll, nil
}

// List returns active polls, newest first. A limit outside 1..MaxPollLimit
// falls back to DefaultPollLimit; a negative skip counts as zero.
func (s *PollService) List(ctx context.Context, limit, skip int) ([]model.Poll, error) {
	if limit <= 0 || limit > MaxPollLimit {
		limit = DefaultPollLimit
	}
	if skip < 0 {
		skip = 0
	}

	polls, err := s.polls.ListPolls(ctx, repository.ListOptions{Limit: limit, Offset: skip})
	if err != nil {
		return nil, fmt.Errorf("service/poll: listing polls: %w", err)
	}
	return polls, nil
}

// Get returns one poll by id.
func (s *PollService) Get(ctx context.Context, id string) (*model.Poll, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("poll_id", "poll id is required")
	}
	return s.polls.GetPoll(ctx, id)
}

// Vote records userID's choice of optionID on pollID.
//
// A user votes at most once per poll; a repeat is a validation error. The
// storage layer enforces this with a primary key so two racing requests
// can't both get through.
func (s *PollService) Vote(ctx context.Context, req model.VoteRequest) (*model.VoteResponse, error) {
	pollID := strings.TrimSpace(req.PollID)
	optionID := strings.TrimSpace(req.OptionID)
	userID := strings.TrimSpace(req.UserID)

	switch {
	case pollID == "":
		return nil, apperror.ValidationFailed("poll_id", "poll id is required")
	case optionID == "":
		return nil, apperror.ValidationFailed("option_id", "option id is required")
	case userID == "":
		return nil, apperror.ValidationFailed("user_id", "user id is required")
	}

	voter, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	poll, err := s.polls.RecordVote(ctx, pollID, optionID, voter.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("user_id", "User has already voted on this poll")
		}
		return nil, err
	}

	s.logger.Info("vote recorded",
		slog.String("pollID", poll.ID),
		slog.String("optionID", optionID),
		slog.String("userID", voter.ID),
		slog.Int("totalVotes", poll.TotalVotes),
	)

	s.credit(ctx, voter.ID, repository.XPDelta{XP: VoteXP, VotesCast: 1})

	if voter.TotalVotesCast+1 == voteMasterCount {
		s.achievements.awardQuietly(ctx, voter.ID, VoteMaster)
	}

	switch poll.TotalVotes {
	case popularVoteCount:
		s.achievements.awardQuietly(ctx, poll.CreatorID, PopularCreator)
	case viralVoteCount:
		s.achievements.awardQuietly(ctx, poll.CreatorID, ViralCreator)
		s.credit(ctx, poll.CreatorID, repository.XPDelta{XP: PopularityBonus(poll.TotalVotes)})
	}

	return &model.VoteResponse{
		Message:    "Vote recorded successfully",
		TotalVotes: poll.TotalVotes,
	}, nil
}

func (s *PollService) credit(ctx context.Context, userID string, delta repository.XPDelta) {
	if err := s.users.ApplyXP(ctx, userID, delta); err != nil {
		s.logger.Error("failed to apply xp",
			slog.String("userID", userID),
			slog.Int("xp", delta.XP),
			slog.String("error", err.Error()),
		)
	}
}

// compact trims every entry and drops the blank ones.
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
