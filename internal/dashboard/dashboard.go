// Package dashboard is the signed-in home view.
//
// It owns the poll list and one card per poll, plus the tab and composer
// toggles. Every successful create or vote re-fetches the whole list; there is
// no incremental merge.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pollsphere/pollsphere/internal/composer"
	"github.com/pollsphere/pollsphere/internal/leaderboard"
	"github.com/pollsphere/pollsphere/internal/model"
	"github.com/pollsphere/pollsphere/internal/pollcard"
)

type Tab int

const (
	TabPolls Tab = iota
	TabLeaderboard
)

func (t Tab) String() string {
	if t == TabLeaderboard {
		return "leaderboard"
	}
	return "polls"
}

// API is everything the dashboard and its children call on the backend.
// *client.Client implements it.
type API interface {
	ListPolls(ctx context.Context) ([]model.Poll, error)
	pollcard.Voter
	composer.Creator
	leaderboard.Fetcher
}

type Dashboard struct {
	api      API
	logger   *slog.Logger
	composer *composer.Composer
	board    *leaderboard.View

	mu           sync.Mutex
	userID       string
	order        []string
	cards        map[string]*pollcard.Card
	tab          Tab
	showComposer bool
	loading      bool
}

func New(api API, logger *slog.Logger, userID string) *Dashboard {
	return &Dashboard{
		api:      api,
		logger:   logger,
		composer: composer.New(api, logger),
		board:    leaderboard.New(api, logger),
		userID:   userID,
		cards:    make(map[string]*pollcard.Card),
		loading:  true,
	}
}

// Mount performs the initial fetch.
func (d *Dashboard) Mount(ctx context.Context) error {
	return d.Refresh(ctx)
}

// Refresh replaces the poll list with the backend's current one. Existing
// cards keep their selection but take the new snapshot, which drops any
// optimistic vote flag. On failure the old list stays and the error is logged.
func (d *Dashboard) Refresh(ctx context.Context) error {
	polls, err := d.api.ListPolls(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false
	if err != nil {
		d.logger.Error("error fetching polls", slog.String("error", err.Error()))
		return err
	}

	cards := make(map[string]*pollcard.Card, len(polls))
	order := make([]string, 0, len(polls))
	for _, p := range polls {
		card, ok := d.cards[p.ID]
		if ok {
			card.SetPoll(p)
		} else {
			card = pollcard.New(d.api, d.logger, p, d.userID)
		}
		cards[p.ID] = card
		order = append(order, p.ID)
	}
	d.cards = cards
	d.order = order
	return nil
}

// Handle reacts to an event returned by a card or the composer.
func (d *Dashboard) Handle(ctx context.Context, ev any) error {
	switch ev.(type) {
	case *composer.Created:
		d.mu.Lock()
		d.showComposer = false
		d.mu.Unlock()
	case *pollcard.Voted:
	default:
		return fmt.Errorf("dashboard: unexpected event %T", ev)
	}
	return d.Refresh(ctx)
}

// Vote submits the current selection of a card and refreshes on success.
func (d *Dashboard) Vote(ctx context.Context, pollID string) (*pollcard.Voted, error) {
	card, ok := d.Card(pollID)
	if !ok {
		return nil, fmt.Errorf("dashboard: no poll %q", pollID)
	}
	ev, err := card.Submit(ctx)
	if err != nil {
		return nil, err
	}
	_ = d.Handle(ctx, ev)
	return ev, nil
}

// CreatePoll submits the composer draft and refreshes on success.
func (d *Dashboard) CreatePoll(ctx context.Context) (*composer.Created, error) {
	d.mu.Lock()
	userID := d.userID
	d.mu.Unlock()

	ev, err := d.composer.Submit(ctx, userID)
	if err != nil {
		return nil, err
	}
	_ = d.Handle(ctx, ev)
	return ev, nil
}

// SetUser switches the viewer and recomputes every card's vote state.
func (d *Dashboard) SetUser(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.userID = userID
	for _, c := range d.cards {
		c.SetUser(userID)
	}
}

func (d *Dashboard) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

// Cards returns the cards in the order the backend listed the polls.
func (d *Dashboard) Cards() []*pollcard.Card {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*pollcard.Card, len(d.order))
	for i, id := range d.order {
		out[i] = d.cards[id]
	}
	return out
}

func (d *Dashboard) Card(pollID string) (*pollcard.Card, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.cards[pollID]
	return c, ok
}

func (d *Dashboard) Tab() Tab {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tab
}

// SetTab switches tabs. Entering the leaderboard tab mounts a fresh
// leaderboard, so it fetches once each time it is opened.
func (d *Dashboard) SetTab(ctx context.Context, tab Tab) {
	d.mu.Lock()
	prev := d.tab
	d.tab = tab
	d.mu.Unlock()

	if tab == TabLeaderboard && prev != TabLeaderboard {
		d.board.Reset()
		d.board.Load(ctx)
	}
}

func (d *Dashboard) ComposerVisible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.showComposer
}

func (d *Dashboard) ToggleComposer() {
	d.mu.Lock()
	d.showComposer = !d.showComposer
	d.mu.Unlock()
}

func (d *Dashboard) Composer() *composer.Composer { return d.composer }

func (d *Dashboard) Leaderboard() *leaderboard.View { return d.board }
