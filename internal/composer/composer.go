// Package composer is the draft form for a new poll.
package composer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/pollsphere/pollsphere/internal/model"
)

// MinOptions is the number of option inputs a draft always keeps.
const MinOptions = 2

var (
	ErrTitleRequired       = errors.New("composer: title is required")
	ErrDescriptionRequired = errors.New("composer: description is required")
	ErrSubmitting          = errors.New("composer: submit already in progress")
)

// Creator is the backend call the composer makes.
type Creator interface {
	CreatePoll(ctx context.Context, userID string, req model.CreatePollRequest) (*model.Poll, error)
}

// Created is returned after a successful submit. The dashboard reacts to it by
// hiding the composer and re-fetching the poll list.
type Created struct {
	Poll *model.Poll
}

// Draft is a snapshot of the form fields.
type Draft struct {
	Title       string
	Description string
	Options     []string
	Tags        string // raw, comma separated
}

type Composer struct {
	api    Creator
	logger *slog.Logger

	mu      sync.Mutex
	draft   Draft
	pending bool
}

func New(api Creator, logger *slog.Logger) *Composer {
	c := &Composer{api: api, logger: logger}
	c.reset()
	return c
}

func (c *Composer) reset() {
	c.draft = Draft{Options: make([]string, MinOptions)}
}

// Draft returns a copy of the current draft.
func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.draft
	d.Options = append([]string(nil), c.draft.Options...)
	return d
}

// Pending reports whether a submit is in flight.
func (c *Composer) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *Composer) SetTitle(v string) {
	c.mu.Lock()
	c.draft.Title = v
	c.mu.Unlock()
}

func (c *Composer) SetDescription(v string) {
	c.mu.Lock()
	c.draft.Description = v
	c.mu.Unlock()
}

func (c *Composer) SetTags(v string) {
	c.mu.Lock()
	c.draft.Tags = v
	c.mu.Unlock()
}

// AddOption appends an empty option input.
func (c *Composer) AddOption() {
	c.mu.Lock()
	c.draft.Options = append(c.draft.Options, "")
	c.mu.Unlock()
}

// RemoveOption drops the option at i. It does nothing when only MinOptions
// remain or i is out of range.
func (c *Composer) RemoveOption(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	opts := c.draft.Options
	if len(opts) <= MinOptions || i < 0 || i >= len(opts) {
		return
	}
	c.draft.Options = append(opts[:i:i], opts[i+1:]...)
}

// SetOption replaces the text of option i. Out-of-range indexes are ignored.
func (c *Composer) SetOption(i int, v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= 0 && i < len(c.draft.Options) {
		c.draft.Options[i] = v
	}
}

// Payload builds the request body from the draft. Options are trimmed and
// blank ones dropped; tags are split on commas and treated the same way.
// Duplicate options are sent as they are.
func (c *Composer) Payload() model.CreatePollRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return payload(c.draft)
}

func payload(d Draft) model.CreatePollRequest {
	options := []string{}
	for _, o := range d.Options {
		if o = strings.TrimSpace(o); o != "" {
			options = append(options, o)
		}
	}

	tags := []string{}
	for _, t := range strings.Split(d.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	return model.CreatePollRequest{
		Title:       d.Title,
		Description: d.Description,
		Options:     options,
		Tags:        tags,
	}
}

// Submit sends the draft as a poll created by userID.
//
// On success the draft goes back to two empty options and a Created event is
// returned. On failure the error is logged, the draft is left as it was so
// the user can try again, and the error is returned for callers that want it.
func (c *Composer) Submit(ctx context.Context, userID string) (*Created, error) {
	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return nil, ErrSubmitting
	}
	if strings.TrimSpace(c.draft.Title) == "" {
		c.mu.Unlock()
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(c.draft.Description) == "" {
		c.mu.Unlock()
		return nil, ErrDescriptionRequired
	}
	req := payload(c.draft)
	c.pending = true
	c.mu.Unlock()

	poll, err := c.api.CreatePoll(ctx, userID, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false
	if err != nil {
		c.logger.Error("error creating poll",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	c.reset()
	return &Created{Poll: poll}, nil
}
