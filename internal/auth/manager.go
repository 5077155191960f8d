package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/panuhen/spotify-mcp/internal/errors"
	"github.com/panuhen/spotify-mcp/internal/models"
)

// expiryMargin is how much lifetime a cached access token must have
// left before it is handed out without a refresh.
const expiryMargin = 60 * time.Second

// Manager owns the in-memory token record and guarantees every caller
// a currently valid access token, transparently refreshing or
// reauthorizing as needed.
type Manager struct {
	flow   *Flow
	store  *Store
	logger *slog.Logger

	mu    sync.Mutex
	token *models.Token

	// group collapses concurrent refresh/authorization attempts into a
	// single exchange whose result all waiters share. Without it, two
	// callers observing an expiring token would race on refresh-token
	// rotation and invalidate each other.
	group singleflight.Group
}

// NewManager creates a Manager around the given flow and token store.
func NewManager(flow *Flow, store *Store, logger *slog.Logger) *Manager {
	return &Manager{flow: flow, store: store, logger: logger}
}

// Token returns a currently valid access token, refreshing or running
// the full authorization flow when necessary. Every path that obtains
// a new record persists it before returning.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	cached := m.token
	m.mu.Unlock()

	if cached.Valid(expiryMargin) {
		return cached.AccessToken, nil
	}

	v, err, _ := m.group.Do("token", func() (any, error) {
		return m.renew(ctx)
	})
	if err != nil {
		return "", err
	}

	return v.(*models.Token).AccessToken, nil
}

// renew runs inside the singleflight group. It re-checks the cache
// first: a waiter that piled up behind an in-flight renewal must reuse
// its result rather than trigger another exchange.
func (m *Manager) renew(ctx context.Context) (*models.Token, error) {
	m.mu.Lock()
	cur := m.token
	m.mu.Unlock()

	if cur == nil {
		disk, err := m.store.Load()
		if err != nil {
			return nil, err
		}
		cur = disk
	}

	if cur.Valid(expiryMargin) {
		m.setToken(cur)
		return cur, nil
	}

	if cur != nil && cur.RefreshToken != "" {
		fresh, err := m.refreshOnce(ctx, cur)
		switch {
		case err == nil:
			if err := m.commit(fresh); err != nil {
				return nil, err
			}

			m.logger.Debug("access token refreshed",
				slog.Time("expires_at", fresh.ExpiresAt))

			return fresh, nil

		case errors.Is(err, apperrors.ErrInvalidGrant):
			// Revoked refresh token. Drop the cached record and fall
			// through to a full authorization.
			m.logger.Warn("refresh token rejected, reauthorizing")
			m.clear()

		default:
			return nil, fmt.Errorf("refreshing token: %w", err)
		}
	}

	fresh, err := m.flow.Authorize(ctx)
	if err != nil {
		return nil, err
	}

	if err := m.commit(fresh); err != nil {
		return nil, err
	}

	m.logger.Info("authorization complete",
		slog.Int("scopes", len(fresh.Scopes)),
		slog.Time("expires_at", fresh.ExpiresAt))

	return fresh, nil
}

// refreshOnce performs the refresh grant, retrying a single time on
// transport failure. The refresh grant is idempotent, so one retry is
// safe; provider error responses are never retried.
func (m *Manager) refreshOnce(ctx context.Context, cur *models.Token) (*models.Token, error) {
	fresh, err := m.flow.Refresh(ctx, cur)
	if err == nil || ctx.Err() != nil {
		return fresh, err
	}

	var re *oauth2.RetrieveError
	if errors.Is(err, apperrors.ErrInvalidGrant) || errors.As(err, &re) {
		return nil, err
	}

	m.logger.Debug("token refresh failed, retrying once", slog.String("error", err.Error()))

	return m.flow.Refresh(ctx, cur)
}

// commit persists the record, then publishes it to memory. Disk first:
// a crash immediately after must not lose a newly minted credential.
func (m *Manager) commit(tok *models.Token) error {
	if err := m.store.Save(tok); err != nil {
		return fmt.Errorf("persisting token: %w", err)
	}

	m.setToken(tok)

	return nil
}

func (m *Manager) setToken(tok *models.Token) {
	m.mu.Lock()
	m.token = tok
	m.mu.Unlock()
}

// clear drops the cached record from memory and disk.
func (m *Manager) clear() {
	m.setToken(nil)

	if err := m.store.Clear(); err != nil {
		m.logger.Warn("clearing token file", slog.String("error", err.Error()))
	}
}
