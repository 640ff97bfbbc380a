// Package client is the HTTP client for the PollSphere REST API.
//
// One method per endpoint, each taking a context so the caller can abandon a
// request. Every failure, whether transport or backend, comes back as a
// *Error whose Detail is the sentence to show a user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pollsphere/pollsphere/internal/model"
)

// FallbackDetail is shown when the backend gave no usable explanation.
const FallbackDetail = "An error occurred"

// RequestIDHeader correlates a client request with the server's log line.
const RequestIDHeader = "X-Request-Id"

// Error is the single error kind the client returns.
//
// Network failures and backend rejections are not told apart:
// callers only ever show Detail or log the whole thing.
type Error struct {
	StatusCode int    // 0 when no response arrived
	Detail     string // human-readable, never empty
	Err        error  // underlying cause, if any
}

func (e *Error) Error() string {
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Detail extracts the user-facing text from any error: the Detail of a
// *Error anywhere in the chain, else FallbackDetail.
func Detail(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return FallbackDetail
}

// Client talks to one backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	newID   func() string

	mu    sync.RWMutex
	token string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRequestIDs overrides the X-Request-Id generator.
func WithRequestIDs(next func() string) Option {
	return func(c *Client) { c.newID = next }
}

// New returns a Client for the backend at baseURL, e.g. "http://localhost:8080".
// Endpoints live under baseURL + "/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken sets the bearer token sent with every request. Empty clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login posts credentials and returns the user record.
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	var user model.User
	err := c.do(ctx, http.MethodPost, "/login", nil,
		model.LoginRequest{Email: email, Password: password}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Register creates an account and returns the user record.
func (c *Client) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	var user model.User
	err := c.do(ctx, http.MethodPost, "/register", nil,
		model.RegisterRequest{Username: username, Email: email, Password: password}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListPolls returns the active polls, newest first.
func (c *Client) ListPolls(ctx context.Context) ([]model.Poll, error) {
	var polls []model.Poll
	if err := c.do(ctx, http.MethodGet, "/polls", nil, nil, &polls); err != nil {
		return nil, err
	}
	return polls, nil
}

// GetPoll returns one poll.
func (c *Client) GetPoll(ctx context.Context, id string) (*model.Poll, error) {
	var poll model.Poll
	if err := c.do(ctx, http.MethodGet, "/polls/"+url.PathEscape(id), nil, nil, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

// CreatePoll creates a poll owned by userID.
func (c *Client) CreatePoll(ctx context.Context, userID string, req model.CreatePollRequest) (*model.Poll, error) {
	var poll model.Poll
	q := url.Values{"user_id": {userID}}
	if err := c.do(ctx, http.MethodPost, "/polls", q, req, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

// Vote casts req.UserID's vote.
func (c *Client) Vote(ctx context.Context, req model.VoteRequest) (*model.VoteResponse, error) {
	var resp model.VoteResponse
	if err := c.do(ctx, http.MethodPost, "/vote", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Leaderboard returns users ranked by XP, in backend order.
func (c *Client) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, "/leaderboard", nil, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Profile returns a user's public record.
func (c *Client) Profile(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/profile", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Achievements returns a user's achievements, newest first.
func (c *Client) Achievements(ctx context.Context, userID string) ([]model.Achievement, error) {
	var list []model.Achievement
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/achievements", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// do sends one request. body is JSON-encoded when non-nil; a 2xx response is
// decoded into out. No retries.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &Error{Detail: FallbackDetail, Err: fmt.Errorf("client: encoding request: %w", err)}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &Error{Detail: FallbackDetail, Err: fmt.Errorf("client: building request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := c.newID()
	req.Header.Set(RequestIDHeader, requestID)
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			slog.String("requestID", requestID),
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return &Error{Detail: FallbackDetail, Err: fmt.Errorf("client: %s %s: %w", method, path, err)}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{StatusCode: resp.StatusCode, Detail: FallbackDetail, Err: fmt.Errorf("client: reading response: %w", err)}
	}

	c.logger.Debug("request completed",
		slog.String("requestID", requestID),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			StatusCode: resp.StatusCode,
			Detail:     detailFrom(payload),
			Err:        fmt.Errorf("client: %s %s: status %d", method, path, resp.StatusCode),
		}
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &Error{StatusCode: resp.StatusCode, Detail: FallbackDetail, Err: fmt.Errorf("client: decoding response: %w", err)}
	}
	return nil
}

// detailFrom picks the human sentence out of an error body: "detail", then
// "message", then the fallback. Non-string details (e.g. a list of field
// errors) fall through.
func detailFrom(payload []byte) string {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return FallbackDetail
	}
	for _, key := range []string{"detail", "message"} {
		if s, ok := body[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return FallbackDetail
}
