package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	apperrors "github.com/panuhen/spotify-mcp/internal/errors"
	"github.com/panuhen/spotify-mcp/internal/models"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// CodeSource obtains an authorization code for a prepared authorization
// URL. The default implementation opens a browser and runs a loopback
// callback listener; tests substitute a canned implementation.
type CodeSource interface {
	ObtainCode(ctx context.Context, authURL, state string) (code string, err error)
}

// FlowConfig holds dependencies for constructing a Flow.
type FlowConfig struct {
	ClientID     string
	ClientSecret string // empty for the bundled public client
	RedirectURI  string
	Scopes       []string
	Codes        CodeSource

	// Endpoint overrides the Spotify accounts service. Zero value
	// means the real service; tests point it at a stub.
	Endpoint oauth2.Endpoint
}

// Flow drives the authorization-code-with-PKCE grant and the refresh
// grant against the Spotify accounts service.
type Flow struct {
	conf  *oauth2.Config
	codes CodeSource
}

// NewFlow creates a Flow from cfg.
func NewFlow(cfg FlowConfig) *Flow {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		}
	}

	// Public PKCE clients have no secret; Spotify then requires the
	// client_id in the request body rather than a basic-auth header.
	if cfg.ClientSecret == "" {
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}

	return &Flow{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		codes: cfg.Codes,
	}
}

// Authorize runs the full interactive grant: fresh PKCE verifier,
// browser hand-off via the CodeSource, then the code exchange. The
// verifier never leaves this stack frame and is never logged.
func (f *Flow) Authorize(ctx context.Context) (*models.Token, error) {
	verifier := oauth2.GenerateVerifier()
	state := RandomHex(16)

	authURL := f.conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	code, err := f.codes.ObtainCode(ctx, authURL, state)
	if err != nil {
		return nil, err
	}

	tok, err := f.conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, translateTokenError(err)
	}

	return fromOAuth2(tok, nil), nil
}

// Refresh exchanges the refresh token for a new access token. Spotify
// only sometimes rotates the refresh token; when the response omits
// one, the previous refresh token is retained. Scopes are carried over
// the same way.
func (f *Flow) Refresh(ctx context.Context, old *models.Token) (*models.Token, error) {
	if old == nil || old.RefreshToken == "" {
		return nil, apperrors.ErrInvalidGrant
	}

	src := f.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: old.RefreshToken})

	tok, err := src.Token()
	if err != nil {
		return nil, translateTokenError(err)
	}

	return fromOAuth2(tok, old), nil
}

// translateTokenError maps the provider's invalid_grant response to
// the internal sentinel so callers can fall back to reauthorization.
func translateTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
		if re.ErrorDescription != "" {
			return fmt.Errorf("%w: %s", apperrors.ErrInvalidGrant, re.ErrorDescription)
		}

		return apperrors.ErrInvalidGrant
	}

	return err
}

// fromOAuth2 converts an oauth2 token into the persisted record shape,
// falling back to prev for fields the provider omitted.
func fromOAuth2(tok *oauth2.Token, prev *models.Token) *models.Token {
	rec := &models.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}

	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		rec.Scopes = strings.Fields(scope)
	}

	if prev != nil {
		if rec.RefreshToken == "" {
			rec.RefreshToken = prev.RefreshToken
		}

		if len(rec.Scopes) == 0 {
			rec.Scopes = prev.Scopes
		}
	}

	return rec
}
