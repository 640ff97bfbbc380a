// Package leaderboard is the ranked list of users by XP.
//
// The backend already returns users sorted by XP. Rank is simply the position
// in that response; this package never re-sorts.
package leaderboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pollsphere/pollsphere/internal/model"
)

// Tier marks the top three rows.
type Tier int

const (
	Plain Tier = iota
	Gold
	Silver
	Bronze
)

func (t Tier) String() string {
	switch t {
	case Gold:
		return "gold"
	case Silver:
		return "silver"
	case Bronze:
		return "bronze"
	default:
		return "plain"
	}
}

// TierFor returns the tier of a 1-based rank.
func TierFor(rank int) Tier {
	switch rank {
	case 1:
		return Gold
	case 2:
		return Silver
	case 3:
		return Bronze
	default:
		return Plain
	}
}

// Fetcher is the backend call the view makes.
type Fetcher interface {
	Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error)
}

// Row is one rendered leaderboard line.
type Row struct {
	Rank  int
	Tier  Tier
	Entry model.LeaderboardEntry
}

type View struct {
	api    Fetcher
	logger *slog.Logger

	mu      sync.Mutex
	entries []model.LeaderboardEntry
	loading bool
	loaded  bool
}

func New(api Fetcher, logger *slog.Logger) *View {
	return &View{api: api, logger: logger, loading: true}
}

// Load fetches the leaderboard the first time it is called. Later calls do
// nothing until Reset. A failed fetch is logged and leaves the list empty.
func (v *View) Load(ctx context.Context) {
	v.mu.Lock()
	if v.loaded {
		v.mu.Unlock()
		return
	}
	v.loaded = true
	v.loading = true
	v.mu.Unlock()

	entries, err := v.api.Leaderboard(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = false
	if err != nil {
		v.logger.Error("error fetching leaderboard", slog.String("error", err.Error()))
		v.entries = nil
		return
	}
	v.entries = entries
}

// Reset makes the next Load fetch again, as if the view had just been mounted.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loaded = false
	v.loading = true
	v.entries = nil
}

func (v *View) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Rows returns the entries in backend order with their rank and tier.
func (v *View) Rows() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()

	rows := make([]Row, len(v.entries))
	for i, e := range v.entries {
		rows[i] = Row{Rank: i + 1, Tier: TierFor(i + 1), Entry: e}
	}
	return rows
}
