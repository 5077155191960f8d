// Command spotify-mcp is an MCP server exposing Spotify playback
// control over stdio. Logs go to stderr; stdout carries the protocol
// framing.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panuhen/spotify-mcp/internal/auth"
	"github.com/panuhen/spotify-mcp/internal/config"
	"github.com/panuhen/spotify-mcp/internal/favorites"
	"github.com/panuhen/spotify-mcp/internal/logging"
	"github.com/panuhen/spotify-mcp/internal/mcpserver"
	"github.com/panuhen/spotify-mcp/internal/spotify"
)

var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment, logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	codes := &auth.BrowserCodeSource{
		RedirectURI: cfg.RedirectURI,
		Timeout:     cfg.AuthTimeout,
		Logger:      logger,
	}

	flow := auth.NewFlow(auth.FlowConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		Scopes:       config.Scopes,
		Codes:        codes,
	})

	tokens := auth.NewManager(flow, auth.NewStore(cfg.TokenPath()), logger)

	favs, err := favorites.Open(cfg.FavoritesPath(), logger)
	if err != nil {
		return fmt.Errorf("opening favorites store: %w", err)
	}
	defer favs.Close()

	sp := spotify.New(spotify.Config{Tokens: tokens})

	server := mcp.NewServer(
		&mcp.Implementation{Name: "spotify-mcp", Version: Version},
		nil,
	)
	mcpserver.RegisterTools(server, sp, favs)

	logger.Info("starting server",
		slog.String("version", Version),
		slog.String("state_dir", cfg.StateDir))

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running server: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
