package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the loaders read so the host environment
// can't leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DB_PATH", "JWT_SECRET", "GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET",
		"GITHUB_CALLBACK_URL", "LOG_LEVEL", "POLLSPHERE_BACKEND_URL", "POLLSPHERE_STATE_DIR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadServer_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Empty(t, cfg.JWTSecret)
	assert.False(t, cfg.GitHubEnabled())
	assert.Equal(t, "http://localhost:8080/api/auth/github/callback", cfg.GitHubCallbackURL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadServer_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DB_PATH", "/tmp/p.db")
	t.Setenv("JWT_SECRET", "s3cret-s3cret-s3cret")
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/tmp/p.db", cfg.DBPath)
	assert.Equal(t, "s3cret-s3cret-s3cret", cfg.JWTSecret)
	assert.True(t, cfg.GitHubEnabled())
	assert.Equal(t, "http://localhost:9000/api/auth/github/callback", cfg.GitHubCallbackURL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadServer_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"port not a number", "PORT", "eighty"},
		{"port out of range", "PORT", "70000"},
		{"bad log level", "LOG_LEVEL", "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadServer()
			assert.Error(t, err)
		})
	}
}

func TestLoadServer_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_PATH=from-dotenv.db\n"), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	// godotenv never overrides a variable that is already set, even to "".
	require.NoError(t, os.Unsetenv("DB_PATH"))

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.db", cfg.DBPath)
}

func TestLoadClient(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLLSPHERE_BACKEND_URL", "https://polls.example.com/")
	t.Setenv("POLLSPHERE_STATE_DIR", "/tmp/state")

	cfg, err := LoadClient()
	require.NoError(t, err)

	assert.Equal(t, "https://polls.example.com", cfg.BackendURL)
	assert.Equal(t, "/tmp/state", cfg.StateDir)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestLoadClient_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := LoadClient()
	require.NoError(t, err)

	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
	assert.Equal(t, "pollsphere", filepath.Base(cfg.StateDir))
}
