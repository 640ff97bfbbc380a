// Package config loads PollSphere's settings from the environment.
//
// Both binaries read an optional .env file first (handy in development;
// production sets real environment variables and has no such file), then the
// process environment. Values already present in the environment win over the
// .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPort       = 8080
	DefaultDBPath     = "data/pollsphere.db"
	DefaultBackendURL = "http://localhost:8080"
)

// Server holds cmd/server's settings.
type Server struct {
	Port   int
	DBPath string

	// JWTSecret signs session tokens. Empty disables tokens: the API then
	// works on user_id parameters alone.
	JWTSecret string

	// GitHub sign-in is enabled only when both id and secret are set.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	LogLevel slog.Level
}

// GitHubEnabled reports whether GitHub OAuth credentials are configured.
func (s *Server) GitHubEnabled() bool {
	return s.GitHubClientID != "" && s.GitHubClientSecret != ""
}

// Addr is the listen address, e.g. ":8080".
func (s *Server) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// Client holds cmd/pollsphere's settings.
type Client struct {
	// BackendURL is the origin of the API; requests go to BackendURL + "/api".
	BackendURL string
	// StateDir holds the persisted session file.
	StateDir string
	LogLevel slog.Level
}

// LoadServer reads the server configuration.
func LoadServer() (*Server, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", strconv.Itoa(DefaultPort)))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("config: invalid PORT %q", os.Getenv("PORT"))
	}

	level, err := ParseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	cfg := &Server{
		Port:               port,
		DBPath:             getEnv("DB_PATH", DefaultDBPath),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  os.Getenv("GITHUB_CALLBACK_URL"),
		LogLevel:           level,
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", port)
	}

	return cfg, nil
}

// LoadClient reads the CLI configuration. Flags applied afterwards by the
// caller override what is returned here.
func LoadClient() (*Client, error) {
	_ = godotenv.Load()

	level, err := ParseLogLevel(getEnv("LOG_LEVEL", "warn"))
	if err != nil {
		return nil, err
	}

	stateDir := os.Getenv("POLLSPHERE_STATE_DIR")
	if stateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("config: locating user config dir: %w", err)
		}
		stateDir = filepath.Join(base, "pollsphere")
	}

	return &Client{
		BackendURL: strings.TrimRight(getEnv("POLLSPHERE_BACKEND_URL", DefaultBackendURL), "/"),
		StateDir:   stateDir,
		LogLevel:   level,
	}, nil
}

// ParseLogLevel accepts debug, info, warn or error (any case).
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: invalid LOG_LEVEL %q", s)
	}
	return level, nil
}

// getEnv reads key, falling back when it is unset or empty.
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
