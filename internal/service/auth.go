// Package service holds PollSphere's business rules.
//
// THE THREE LAYERS:
//
//	Handler (HTTP)      → decodes requests, encodes responses, maps errors to status codes
//	Service (this pkg)  → validation, XP bookkeeping, achievements, vote rules
//	Repository (data)   → SQL
//
// Services accept plain Go values and return domain errors from apperror; they
// never see an *http.Request. That keeps every rule testable with a plain
// function call and a fake repository.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pollsphere/pollsphere/internal/apperror"
	"github.com/pollsphere/pollsphere/internal/auth"
	"github.com/pollsphere/pollsphere/internal/model"
	"github.com/pollsphere/pollsphere/internal/repository"
)

// AuthService registers and signs in users.
//
// DEPENDENCIES:
//   - users      repository.UserRepository → account storage
//   - passwords  *auth.PasswordService     → bcrypt hashing
//   - tokens     *auth.TokenService        → session tokens; nil disables them
//   - logger     *slog.Logger
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuthService wires an AuthService. tokens may be nil when the server runs
// without JWT_SECRET; responses then simply carry no token.
func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates an email/password account and returns its record with a
// session token attached.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)

	if username == "" {
		return nil, apperror.ValidationFailed("username", "Username is required")
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "Email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "Password is required")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperror.ValidationFailed("email", "Email already registered")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", strings.TrimPrefix(err.Error(), "auth: "))
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("email", "Email already registered")
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.withToken(user)
}

// Login verifies email and password. Unknown email and wrong password get the
// same answer so the endpoint can't be used to probe for accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	invalid := apperror.Unauthorized("Invalid credentials")

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	// GitHub-only accounts have no password hash and can't log in this way.
	if user.PasswordHash == "" {
		return nil, invalid
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	now := s.now()
	if err := s.users.TouchActivity(ctx, user.ID, now); err != nil {
		// Bookkeeping only; a failed touch must not block the login.
		s.logger.Warn("failed to record login activity",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}
	user.LastActivity = now

	return s.withToken(user)
}

// LoginWithGitHub signs in (creating on first use) the account linked to a
// GitHub identity.
func (s *AuthService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID: gh.ID,
		Username: gh.Login,
		Email:    normalizeEmail(gh.AccountEmail()),
	}
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("email", "Email already registered")
		}
		return nil, fmt.Errorf("service/auth: upserting GitHub user %d: %w", gh.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.withToken(user)
}

// Profile returns the public record of a user.
func (s *AuthService) Profile(ctx context.Context, id string) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("user_id", "user id is required")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

// withToken strips credentials from user and attaches a fresh session token.
func (s *AuthService) withToken(user *model.User) (*model.User, error) {
	out := user.Profile()
	if s.tokens == nil {
		return &out, nil
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", user.ID, err)
	}
	out.Token = token
	return &out, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
