// Package config loads environment-based configuration for spotify-mcp.
package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultClientID is the bundled public client identifier. It is safe
// to ship in source: the PKCE flow never uses a client secret, so the
// identifier alone grants nothing.
const DefaultClientID = "1f14edc73f6548dc97f7791dfec833aa"

// Scopes requested during authorization: playback control, playlist
// read/write, and library read/write.
var Scopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"playlist-read-private",
	"playlist-modify-public",
	"playlist-modify-private",
	"user-library-read",
	"user-library-modify",
}

// Config holds all environment-based configuration for spotify-mcp.
type Config struct {
	// Spotify application identity. ClientID defaults to the bundled
	// public client; ClientSecret is only set when the deployer brings
	// their own application.
	ClientID     string `env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`

	// Redirect target for the PKCE flow. Must be a loopback http URL
	// or https.
	RedirectURI string `env:"SPOTIFY_REDIRECT_URI" envDefault:"http://127.0.0.1:8888/callback"`

	// Directory holding the token and favorites files.
	// Defaults to ~/.spotify-mcp.
	StateDir string `env:"SPOTIFY_MCP_STATE_DIR"`

	// How long to wait for the user to complete the browser login.
	AuthTimeout time.Duration `env:"SPOTIFY_AUTH_TIMEOUT" envDefault:"5m"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}

	if cfg.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("determining home directory: %w", err)
		}

		cfg.StateDir = filepath.Join(home, ".spotify-mcp")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.RedirectURI)
	if err != nil {
		return fmt.Errorf("SPOTIFY_REDIRECT_URI is not a valid URL: %w", err)
	}

	switch {
	case u.Scheme == "https":
	case u.Scheme == "http" && isLoopbackHost(u.Hostname()):
	default:
		return fmt.Errorf("SPOTIFY_REDIRECT_URI must be https or a loopback http address, got %q", c.RedirectURI)
	}

	if c.AuthTimeout <= 0 {
		return fmt.Errorf("SPOTIFY_AUTH_TIMEOUT must be positive")
	}

	return nil
}

// isLoopbackHost returns true if the hostname is a loopback address.
func isLoopbackHost(host string) bool {
	return host == "127.0.0.1" || host == "localhost" || host == "::1"
}

// TokenPath is the location of the cached token record.
func (c *Config) TokenPath() string {
	return filepath.Join(c.StateDir, "token.json")
}

// FavoritesPath is the location of the local favorites file.
func (c *Config) FavoritesPath() string {
	return filepath.Join(c.StateDir, "favorites.json")
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
