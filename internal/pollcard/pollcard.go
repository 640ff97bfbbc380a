// Package pollcard renders and drives a single poll.
//
// A card is Unvoted or Voted. Which one is never stored on its own: it is
// derived from the latest poll snapshot (is the user's id in any option's
// voter list?) every time it is asked. The one exception is the moment right
// after a successful vote, when the card shows Voted before the refreshed
// snapshot arrives. That optimistic flag is dropped as soon as a new snapshot
// or user is set, so the server copy always has the last word.
package pollcard

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/pollsphere/pollsphere/internal/model"
)

var (
	ErrNoSelection   = errors.New("pollcard: no option selected")
	ErrVoteInFlight  = errors.New("pollcard: vote already in flight")
	ErrAlreadyVoted  = errors.New("pollcard: already voted on this poll")
	ErrUnknownOption = errors.New("pollcard: option is not part of this poll")
)

// HasVoted reports whether userID appears in any option's voter list.
func HasVoted(poll *model.Poll, userID string) bool {
	if poll == nil || userID == "" {
		return false
	}
	for _, o := range poll.Options {
		if slices.Contains(o.VoterIDs, userID) {
			return true
		}
	}
	return false
}

// Percentage is votes as a share of total, in percent, rounded to one
// decimal. A poll without votes is 0% everywhere.
func Percentage(votes, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(votes)/float64(total)*1000) / 10
}

// Voter is the backend call a card makes.
type Voter interface {
	Vote(ctx context.Context, req model.VoteRequest) (*model.VoteResponse, error)
}

// Voted is returned after a successful vote. The dashboard reacts to it by
// re-fetching the poll list.
type Voted struct {
	PollID     string
	OptionID   string
	TotalVotes int
}

type Card struct {
	api    Voter
	logger *slog.Logger

	mu        sync.Mutex
	poll      model.Poll
	userID    string
	selected  string
	inFlight  bool
	justVoted bool
}

func New(api Voter, logger *slog.Logger, poll model.Poll, userID string) *Card {
	return &Card{
		api:    api,
		logger: logger,
		poll:   poll,
		userID: userID,
	}
}

// SetPoll replaces the snapshot. The optimistic Voted flag is cleared; a
// selection that no longer names an option is dropped.
func (c *Card) SetPoll(poll model.Poll) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.poll = poll
	c.justVoted = false
	if c.selected != "" && !hasOption(&poll, c.selected) {
		c.selected = ""
	}
}

// SetUser changes whose vote state the card shows.
func (c *Card) SetUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if userID != c.userID {
		c.selected = ""
	}
	c.userID = userID
	c.justVoted = false
}

// Poll returns the current snapshot.
func (c *Card) Poll() model.Poll {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poll
}

func (c *Card) Voted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voted()
}

func (c *Card) voted() bool {
	return c.justVoted || HasVoted(&c.poll, c.userID)
}

// Select picks an option; picking another replaces it. Selecting does not
// send anything.
func (c *Card) Select(optionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.voted() {
		return ErrAlreadyVoted
	}
	if !hasOption(&c.poll, optionID) {
		return ErrUnknownOption
	}
	c.selected = optionID
	return nil
}

// SelectIndex picks the option at position i (0-based).
func (c *Card) SelectIndex(i int) error {
	c.mu.Lock()
	if i < 0 || i >= len(c.poll.Options) {
		c.mu.Unlock()
		return ErrUnknownOption
	}
	id := c.poll.Options[i].ID
	c.mu.Unlock()
	return c.Select(id)
}

// Submit sends the selected vote.
//
// Nothing is sent without a selection, while a previous vote is still in
// flight, or once the card is Voted. On success the card turns Voted at once
// and a Voted event is returned. On failure the card stays Unvoted with the
// selection kept, and the error is logged; the user may press submit again.
func (c *Card) Submit(ctx context.Context) (*Voted, error) {
	c.mu.Lock()
	switch {
	case c.voted():
		c.mu.Unlock()
		return nil, ErrAlreadyVoted
	case c.inFlight:
		c.mu.Unlock()
		return nil, ErrVoteInFlight
	case c.selected == "":
		c.mu.Unlock()
		return nil, ErrNoSelection
	}
	req := model.VoteRequest{
		PollID:   c.poll.ID,
		OptionID: c.selected,
		UserID:   c.userID,
	}
	c.inFlight = true
	c.mu.Unlock()

	resp, err := c.api.Vote(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err != nil {
		c.logger.Error("error voting",
			slog.String("pollID", req.PollID),
			slog.String("optionID", req.OptionID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	c.justVoted = true
	ev := &Voted{PollID: req.PollID, OptionID: req.OptionID}
	if resp != nil {
		ev.TotalVotes = resp.TotalVotes
	}
	return ev, nil
}

// View is everything a renderer needs for one card.
type View struct {
	PollID          string
	Title           string
	Description     string
	CreatorUsername string
	CreatedAt       time.Time
	TotalVotes      int
	Tags            []string

	Voted     bool
	InFlight  bool
	CanSubmit bool     // Unvoted, something selected, nothing in flight
	Choices   []Choice // Unvoted only
	Results   []Result // Voted only
}

type Choice struct {
	Number   int // 1-based, for keyboard selection
	OptionID string
	Text     string
	Selected bool
}

type Result struct {
	OptionID string
	Text     string
	Votes    int
	Percent  float64
}

func (c *Card) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		PollID:          c.poll.ID,
		Title:           c.poll.Title,
		Description:     c.poll.Description,
		CreatorUsername: c.poll.CreatorUsername,
		CreatedAt:       c.poll.CreatedAt,
		TotalVotes:      c.poll.TotalVotes,
		Tags:            append([]string(nil), c.poll.Tags...),
		Voted:           c.voted(),
		InFlight:        c.inFlight,
	}

	if v.Voted {
		for _, o := range c.poll.Options {
			v.Results = append(v.Results, Result{
				OptionID: o.ID,
				Text:     o.Text,
				Votes:    o.Votes,
				Percent:  Percentage(o.Votes, c.poll.TotalVotes),
			})
		}
		return v
	}

	for i, o := range c.poll.Options {
		v.Choices = append(v.Choices, Choice{
			Number:   i + 1,
			OptionID: o.ID,
			Text:     o.Text,
			Selected: o.ID == c.selected,
		})
	}
	v.CanSubmit = c.selected != "" && !c.inFlight
	return v
}

func hasOption(poll *model.Poll, optionID string) bool {
	for _, o := range poll.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}
