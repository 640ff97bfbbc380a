package composer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollsphere/pollsphere/internal/model"
)

type fakeCreator struct {
	mu      sync.Mutex
	calls   int
	userID  string
	req     model.CreatePollRequest
	err     error
	started chan struct{}
	block   chan struct{}
}

func (f *fakeCreator) CreatePoll(_ context.Context, userID string, req model.CreatePollRequest) (*model.Poll, error) {
	f.mu.Lock()
	f.calls++
	f.userID = userID
	f.req = req
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.Poll{ID: "p1", Title: req.Title}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func filled(c *Composer) {
	c.SetTitle("Lunch?")
	c.SetDescription("Pick one")
	c.SetOption(0, "Pizza")
	c.SetOption(1, "Sushi")
}

func TestNew_StartsWithTwoEmptyOptions(t *testing.T) {
	c := New(&fakeCreator{}, discard())
	assert.Equal(t, []string{"", ""}, c.Draft().Options)
}

func TestPayload_FiltersOptionsAndTags(t *testing.T) {
	c := New(&fakeCreator{}, discard())
	c.SetTitle("t")
	c.SetDescription("d")
	for i := 0; i < 3; i++ {
		c.AddOption()
	}
	for i, v := range []string{"", "Yes", "", "No", ""} {
		c.SetOption(i, v)
	}
	c.SetTags("a, b ,,c")

	p := c.Payload()
	assert.Equal(t, []string{"Yes", "No"}, p.Options)
	assert.Equal(t, []string{"a", "b", "c"}, p.Tags)
}

func TestPayload_KeepsDuplicatesAndEmptyTags(t *testing.T) {
	c := New(&fakeCreator{}, discard())
	c.SetOption(0, "Same")
	c.SetOption(1, "Same")

	p := c.Payload()
	assert.Equal(t, []string{"Same", "Same"}, p.Options)
	assert.Equal(t, []string{}, p.Tags)
}

func TestRemoveOption(t *testing.T) {
	c := New(&fakeCreator{}, discard())

	c.RemoveOption(0)
	assert.Len(t, c.Draft().Options, MinOptions, "removing at the minimum is a no-op")

	c.AddOption()
	c.SetOption(0, "a")
	c.SetOption(1, "b")
	c.SetOption(2, "c")
	c.RemoveOption(1)
	assert.Equal(t, []string{"a", "c"}, c.Draft().Options)

	c.RemoveOption(0)
	assert.Equal(t, []string{"a", "c"}, c.Draft().Options)

	c.AddOption()
	c.RemoveOption(7)
	assert.Len(t, c.Draft().Options, 3)
}

func TestDraft_IsACopy(t *testing.T) {
	c := New(&fakeCreator{}, discard())
	d := c.Draft()
	d.Options[0] = "mutated"
	assert.Equal(t, "", c.Draft().Options[0])
}

func TestSubmit_Success(t *testing.T) {
	api := &fakeCreator{}
	c := New(api, discard())
	filled(c)
	c.SetTags("food")
	c.AddOption()

	ev, err := c.Submit(context.Background(), "user-7")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "p1", ev.Poll.ID)

	assert.Equal(t, "user-7", api.userID)
	assert.Equal(t, []string{"Pizza", "Sushi"}, api.req.Options)
	assert.Equal(t, []string{"food"}, api.req.Tags)

	assert.Equal(t, Draft{Options: []string{"", ""}}, c.Draft(), "draft reset after success")
}

func TestSubmit_RequiresTitleAndDescription(t *testing.T) {
	api := &fakeCreator{}
	c := New(api, discard())

	_, err := c.Submit(context.Background(), "u")
	assert.ErrorIs(t, err, ErrTitleRequired)

	c.SetTitle("t")
	c.SetDescription("   ")
	_, err = c.Submit(context.Background(), "u")
	assert.ErrorIs(t, err, ErrDescriptionRequired)

	assert.Zero(t, api.calls)
}

func TestSubmit_FailureKeepsDraftAndLogs(t *testing.T) {
	var logs bytes.Buffer
	api := &fakeCreator{err: errors.New("boom")}
	c := New(api, slog.New(slog.NewTextHandler(&logs, nil)))
	filled(c)
	before := c.Draft()

	ev, err := c.Submit(context.Background(), "u")
	assert.Error(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, before, c.Draft())
	assert.False(t, c.Pending())
	assert.Contains(t, logs.String(), "error creating poll")

	// Resubmission is allowed.
	api.err = nil
	_, err = c.Submit(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls)
}

func TestSubmit_BlocksDoubleSubmit(t *testing.T) {
	api := &fakeCreator{started: make(chan struct{}, 1), block: make(chan struct{})}
	c := New(api, discard())
	filled(c)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), "u")
		done <- err
	}()
	<-api.started
	assert.True(t, c.Pending())

	_, err := c.Submit(context.Background(), "u")
	assert.ErrorIs(t, err, ErrSubmitting)

	close(api.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, api.calls)
}
