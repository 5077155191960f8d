// Package spotify implements a typed client for the Spotify Web API.
// Every call fetches a valid access token from its TokenSource, so the
// auth lifecycle stays out of this package entirely.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/panuhen/spotify-mcp/internal/models"
)

const defaultBaseURL = "https://api.spotify.com/v1"

const (
	// httpClientTimeout is the timeout for the default HTTP client used
	// when no custom client is provided.
	httpClientTimeout = 30 * time.Second

	// maxResponseBytes caps response body reads to prevent a
	// misbehaving server from consuming unbounded memory.
	maxResponseBytes = 1024 * 1024

	// maxQueueTracks limits how many upcoming tracks Queue returns.
	maxQueueTracks = 20
)

// TokenSource supplies a valid access token for one request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// APIError is a non-2xx response from the Web API.
type APIError struct {
	Status  int
	Message string
	Reason  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify: %s (status %d)", e.Message, e.Status)
}

// NoActiveDevice reports whether the error is the "no active playback
// device" condition, which callers translate to a friendlier message
// than a raw 404.
func (e *APIError) NoActiveDevice() bool {
	if e.Status != http.StatusNotFound {
		return false
	}

	return e.Reason == "NO_ACTIVE_DEVICE" ||
		strings.Contains(strings.ToLower(e.Message), "no active device")
}

// TransientError wraps a transport failure that is likely temporary
// and safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or any error in its chain) is a
// TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Config holds dependencies for constructing a Client.
type Config struct {
	Tokens     TokenSource
	HTTPClient *http.Client // nil means a default client with a 30s timeout
	BaseURL    string       // empty means the public API; tests point it at a stub
}

// Client talks to the Spotify Web API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpClientTimeout}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     cfg.Tokens,
	}
}

// TrackID normalizes a track reference: both bare IDs and
// spotify:track: URIs are accepted wherever the API wants an ID.
func TrackID(s string) string {
	if i := strings.LastIndex(s, ":"); i >= 0 && strings.HasPrefix(s, "spotify:") {
		return s[i+1:]
	}

	return s
}

// PlaylistID normalizes a playlist reference the same way.
func PlaylistID(s string) string {
	if i := strings.LastIndex(s, ":"); i >= 0 && strings.HasPrefix(s, "spotify:") {
		return s[i+1:]
	}

	return s
}

// apiErrorBody is the error envelope the Web API wraps failures in.
type apiErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// do performs one authenticated request. Transport failures come back
// wrapped in TransientError; non-2xx responses come back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("obtaining access token: %w", err)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}

		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("calling %s %s: %w", method, path, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransientError{Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

		var envelope apiErrorBody
		if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
			apiErr.Message = envelope.Error.Message
			apiErr.Reason = envelope.Error.Reason
		}

		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// get performs a GET, retrying once on transport failure. Reads are
// idempotent; writes are never retried.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	err := c.do(ctx, http.MethodGet, path, query, nil, out)
	if err == nil || !IsTransient(err) || ctx.Err() != nil {
		return err
	}

	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func deviceQuery(deviceID string) url.Values {
	q := url.Values{}
	if deviceID != "" {
		q.Set("device_id", deviceID)
	}

	return q
}

// --- Playback control ---

// PlayOptions selects what to play. A zero value resumes the current
// context on the active device.
type PlayOptions struct {
	URI        string // a single track
	ContextURI string // an album or playlist
	DeviceID   string
	PositionMS int // only honored with ContextURI
}

// Play resumes playback or starts the given track or context.
func (c *Client) Play(ctx context.Context, opts PlayOptions) error {
	body := map[string]any{}

	switch {
	case opts.URI != "":
		body["uris"] = []string{opts.URI}
	case opts.ContextURI != "":
		body["context_uri"] = opts.ContextURI
		if opts.PositionMS > 0 {
			body["position_ms"] = opts.PositionMS
		}
	}

	var payload any
	if len(body) > 0 {
		payload = body
	}

	return c.do(ctx, http.MethodPut, "/me/player/play", deviceQuery(opts.DeviceID), payload, nil)
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodPut, "/me/player/pause", deviceQuery(deviceID), nil, nil)
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodPost, "/me/player/next", deviceQuery(deviceID), nil, nil)
}

// Previous goes back to the previous track.
func (c *Client) Previous(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodPost, "/me/player/previous", deviceQuery(deviceID), nil, nil)
}

// Seek jumps to a position in the current track.
func (c *Client) Seek(ctx context.Context, positionMS int, deviceID string) error {
	q := deviceQuery(deviceID)
	q.Set("position_ms", strconv.Itoa(positionMS))

	return c.do(ctx, http.MethodPut, "/me/player/seek", q, nil, nil)
}

// SetVolume sets the playback volume (0-100).
func (c *Client) SetVolume(ctx context.Context, volume int, deviceID string) error {
	q := deviceQuery(deviceID)
	q.Set("volume_percent", strconv.Itoa(volume))

	return c.do(ctx, http.MethodPut, "/me/player/volume", q, nil, nil)
}

// SetShuffle toggles shuffle mode.
func (c *Client) SetShuffle(ctx context.Context, state bool, deviceID string) error {
	q := deviceQuery(deviceID)
	q.Set("state", strconv.FormatBool(state))

	return c.do(ctx, http.MethodPut, "/me/player/shuffle", q, nil, nil)
}

// SetRepeat sets the repeat mode: off, track, or context.
func (c *Client) SetRepeat(ctx context.Context, state, deviceID string) error {
	q := deviceQuery(deviceID)
	q.Set("state", state)

	return c.do(ctx, http.MethodPut, "/me/player/repeat", q, nil, nil)
}

// --- State queries ---

// CurrentTrack returns the currently playing track. A 204 from the API
// (nothing playing) yields Playing == false and a nil Track.
func (c *Client) CurrentTrack(ctx context.Context) (*CurrentlyPlaying, error) {
	var raw struct {
		IsPlaying  bool      `json:"is_playing"`
		ProgressMS int       `json:"progress_ms"`
		Item       *apiTrack `json:"item"`
	}

	if err := c.get(ctx, "/me/player/currently-playing", nil, &raw); err != nil {
		return nil, err
	}

	cp := &CurrentlyPlaying{
		Playing:    raw.IsPlaying,
		ProgressMS: raw.ProgressMS,
		Track:      raw.Item.toModel(),
	}
	if cp.Track == nil {
		cp.Playing = false
	}

	return cp, nil
}

// State returns the full playback state; Active is false when no
// device is playing.
func (c *Client) State(ctx context.Context) (*PlaybackState, error) {
	var raw struct {
		IsPlaying    bool       `json:"is_playing"`
		ShuffleState bool       `json:"shuffle_state"`
		RepeatState  string     `json:"repeat_state"`
		ProgressMS   int        `json:"progress_ms"`
		Device       *apiDevice `json:"device"`
		Item         *apiTrack  `json:"item"`
	}

	if err := c.get(ctx, "/me/player", nil, &raw); err != nil {
		return nil, err
	}

	state := &PlaybackState{
		IsPlaying:  raw.IsPlaying,
		Shuffle:    raw.ShuffleState,
		Repeat:     raw.RepeatState,
		ProgressMS: raw.ProgressMS,
		Track:      raw.Item.toModel(),
	}

	if raw.Device != nil {
		state.Active = true
		state.Device = &Device{
			ID:       raw.Device.ID,
			Name:     raw.Device.Name,
			Type:     raw.Device.Type,
			IsActive: raw.Device.IsActive,
			Volume:   raw.Device.VolumePercent,
		}
	}

	if state.Repeat == "" {
		state.Repeat = "off"
	}

	return state, nil
}

// GetQueue returns the upcoming tracks in the playback queue.
func (c *Client) GetQueue(ctx context.Context) (*Queue, error) {
	var raw struct {
		CurrentlyPlaying *apiTrack  `json:"currently_playing"`
		Queue            []apiTrack `json:"queue"`
	}

	if err := c.get(ctx, "/me/player/queue", nil, &raw); err != nil {
		return nil, err
	}

	q := &Queue{
		CurrentlyPlaying: raw.CurrentlyPlaying.toModel(),
		Queue:            make([]models.Track, 0, len(raw.Queue)),
	}

	for i := range raw.Queue {
		if i >= maxQueueTracks {
			break
		}

		if t := raw.Queue[i].toModel(); t != nil {
			q.Queue = append(q.Queue, *t)
		}
	}

	return q, nil
}

// AddToQueue appends a track to the playback queue.
func (c *Client) AddToQueue(ctx context.Context, uri, deviceID string) error {
	q := deviceQuery(deviceID)
	q.Set("uri", uri)

	return c.do(ctx, http.MethodPost, "/me/player/queue", q, nil, nil)
}

// Devices lists the playback devices known to the user's account.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var raw struct {
		Devices []apiDevice `json:"devices"`
	}

	if err := c.get(ctx, "/me/player/devices", nil, &raw); err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(raw.Devices))
	for _, d := range raw.Devices {
		devices = append(devices, Device{
			ID:       d.ID,
			Name:     d.Name,
			Type:     d.Type,
			IsActive: d.IsActive,
			Volume:   d.VolumePercent,
		})
	}

	return devices, nil
}
