package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SPOTIFY_CLIENT_ID",
		"SPOTIFY_CLIENT_SECRET",
		"SPOTIFY_REDIRECT_URI",
		"SPOTIFY_MCP_STATE_DIR",
		"SPOTIFY_AUTH_TIMEOUT",
		"ENVIRONMENT",
		"LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultClientID, cfg.ClientID)
	assert.Empty(t, cfg.ClientSecret)
	assert.Equal(t, "http://127.0.0.1:8888/callback", cfg.RedirectURI)
	assert.Equal(t, 5*time.Minute, cfg.AuthTimeout)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_StatePaths(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("SPOTIFY_MCP_STATE_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "token.json"), cfg.TokenPath())
	assert.Equal(t, filepath.Join(dir, "favorites.json"), cfg.FavoritesPath())
}

func TestLoad_CustomClient(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPOTIFY_CLIENT_ID", "my-own-app")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "shh")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "my-own-app", cfg.ClientID)
	assert.Equal(t, "shh", cfg.ClientSecret)
}

func TestLoad_RejectsNonLoopbackHTTPRedirect(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPOTIFY_REDIRECT_URI", "http://example.com/callback")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPOTIFY_REDIRECT_URI")
}

func TestLoad_AllowsHTTPSRedirect(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPOTIFY_REDIRECT_URI", "https://example.com/callback")

	_, err := Load()
	require.NoError(t, err)
}

func TestLoad_RejectsZeroAuthTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPOTIFY_AUTH_TIMEOUT", "0s")

	_, err := Load()
	require.Error(t, err)
}
