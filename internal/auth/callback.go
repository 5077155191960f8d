package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	apperrors "github.com/panuhen/spotify-mcp/internal/errors"
)

const (
	// defaultAuthWait bounds how long ObtainCode waits for the user to
	// finish the browser login when no timeout is configured.
	defaultAuthWait = 5 * time.Minute

	// shutdownWait bounds the callback server drain after a code (or
	// denial) has been received.
	shutdownWait = 2 * time.Second
)

const successPage = `<!DOCTYPE html>
<html>
<head>
<title>Authorization Successful</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
         display: flex; align-items: center; justify-content: center; height: 100vh;
         margin: 0; background: #f5f5f5; }
  .container { text-align: center; background: white; padding: 2rem;
               border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
  h1 { color: #1DB954; margin: 0 0 1rem 0; }
  p { color: #666; margin: 0; }
</style>
</head>
<body>
<div class="container">
  <h1>&#10003; Authorization Successful</h1>
  <p>Spotify is connected. You can close this window.</p>
</div>
</body>
</html>
`

const deniedPage = `<!DOCTYPE html>
<html>
<head>
<title>Authorization Declined</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
         display: flex; align-items: center; justify-content: center; height: 100vh;
         margin: 0; background: #f5f5f5; }
  .container { text-align: center; background: white; padding: 2rem;
               border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
  h1 { color: #991b1b; margin: 0 0 1rem 0; }
  p { color: #666; margin: 0; }
</style>
</head>
<body>
<div class="container">
  <h1>Authorization Declined</h1>
  <p>No access was granted. You can close this window.</p>
</div>
</body>
</html>
`

// BrowserCodeSource obtains an authorization code by opening the
// user's browser on the authorization URL and listening on the
// loopback redirect URI for the provider's callback.
type BrowserCodeSource struct {
	RedirectURI string
	Timeout     time.Duration
	Logger      *slog.Logger

	// OpenBrowser launches the user's browser. Nil means the platform
	// default; tests substitute a stub.
	OpenBrowser func(url string) error
}

type callbackResult struct {
	code string
	err  error
}

// ObtainCode implements CodeSource. It blocks until the callback
// arrives, the timeout elapses, or ctx is cancelled.
func (b *BrowserCodeSource) ObtainCode(ctx context.Context, authURL, state string) (string, error) {
	u, err := url.Parse(b.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("parsing redirect URI: %w", err)
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return "", fmt.Errorf("starting callback listener on %s: %w", u.Host, err)
	}

	results := make(chan callbackResult, 1)
	var once sync.Once
	send := func(r callbackResult) {
		once.Do(func() { results <- r })
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if q.Get("state") != state {
			send(callbackResult{err: errors.New("authorization callback state mismatch")})
			http.Error(w, "state mismatch", http.StatusBadRequest)

			return
		}

		if errCode := q.Get("error"); errCode != "" {
			if errCode == "access_denied" {
				send(callbackResult{err: apperrors.ErrAuthorizationDenied})
			} else {
				send(callbackResult{err: fmt.Errorf("authorization failed: %s", errCode)})
			}

			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, deniedPage)

			return
		}

		code := q.Get("code")
		if code == "" {
			send(callbackResult{err: errors.New("authorization callback missing code")})
			http.Error(w, "missing code", http.StatusBadRequest)

			return
		}

		send(callbackResult{code: code})
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, successPage)
	})

	srv := &http.Server{
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}

	go srv.Serve(ln)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	open := b.OpenBrowser
	if open == nil {
		open = openBrowser
	}

	if err := open(authURL); err != nil {
		// Browser launch failure is recoverable: log the URL so the
		// user can open it by hand.
		b.Logger.Warn("could not open browser, visit the URL manually",
			slog.String("error", err.Error()),
			slog.String("url", authURL))
	} else {
		b.Logger.Info("waiting for authorization in browser")
	}

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = defaultAuthWait
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-results:
		return r.code, r.err
	case <-timer.C:
		return "", apperrors.ErrAuthorizationTimeout
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", apperrors.ErrAuthorizationTimeout
		}

		return "", ctx.Err()
	}
}
