package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panuhen/spotify-mcp/internal/favorites"
	"github.com/panuhen/spotify-mcp/internal/models"
	"github.com/panuhen/spotify-mcp/internal/spotify"
)

type staticTokens struct{}

func (staticTokens) Token(context.Context) (string, error) { return "test-token", nil }

// apiStub is a canned Spotify API that records every request path.
type apiStub struct {
	mu        sync.Mutex
	requests  []string
	responses map[string]string // "METHOD /path" to JSON body
	status    map[string]int
}

func (a *apiStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		a.mu.Lock()
		a.requests = append(a.requests, key)
		body, found := a.responses[key]
		code := a.status[key]
		a.mu.Unlock()

		if code != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			_, _ = w.Write([]byte(body))

			return
		}

		if !found {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func (a *apiStub) hits() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, len(a.requests))
	copy(out, a.requests)

	return out
}

// testSetup wires a stub API, a temp favorites store, and a connected
// in-memory MCP session.
func testSetup(t *testing.T, stub *apiStub) (*mcp.ClientSession, *favorites.Store) {
	t.Helper()

	if stub.responses == nil {
		stub.responses = map[string]string{}
	}
	if stub.status == nil {
		stub.status = map[string]int{}
	}

	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	sp := spotify.New(spotify.Config{Tokens: staticTokens{}, BaseURL: srv.URL})

	favs, err := favorites.Open(filepath.Join(t.TempDir(), "favorites.json"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { favs.Close() })

	server := mcp.NewServer(
		&mcp.Implementation{Name: "spotify-mcp-test", Version: "test"},
		nil,
	)
	RegisterTools(server, sp, favs)

	ctx := context.Background()
	t1, t2 := mcp.NewInMemoryTransports()
	_, err = server.Connect(ctx, t1, nil)
	require.NoError(t, err)

	client := mcp.NewClient(
		&mcp.Implementation{Name: "test-client", Version: "test"},
		nil,
	)
	session, err := client.Connect(ctx, t2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return session, favs
}

// callTool calls a tool and returns the result.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)

	return result
}

// errorText extracts the error message from a failed tool call.
func errorText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.True(t, result.IsError, "expected an error result")
	require.NotEmpty(t, result.Content)

	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	return tc.Text
}

// extractJSON unmarshals the first text content from a CallToolResult.
func extractJSON(t *testing.T, result *mcp.CallToolResult, dest interface{}) {
	t.Helper()
	require.NotEmpty(t, result.Content, "result has no content")
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "first content is not TextContent")
	require.NoError(t, json.Unmarshal([]byte(tc.Text), dest))
}

const currentTrackJSON = `{
	"is_playing": true,
	"progress_ms": 4200,
	"item": {
		"id": "t1",
		"uri": "spotify:track:t1",
		"name": "Test Song",
		"duration_ms": 180000,
		"artists": [{"name": "Test Artist"}],
		"album": {"name": "Test Album"}
	}
}`

// --- Validation before dispatch ---

func TestSetVolume_OutOfRange(t *testing.T) {
	stub := &apiStub{}
	session, _ := testSetup(t, stub)

	result := callTool(t, session, "set_volume", map[string]interface{}{"volume": 150})

	assert.Contains(t, errorText(t, result), "volume")
	assert.Empty(t, stub.hits(), "invalid arguments must never reach the API")
}

func TestRepeat_InvalidMode(t *testing.T) {
	stub := &apiStub{}
	session, _ := testSetup(t, stub)

	result := callTool(t, session, "repeat", map[string]interface{}{"state": "always"})

	assert.Contains(t, errorText(t, result), "state")
	assert.Empty(t, stub.hits())
}

func TestSeek_NegativePosition(t *testing.T) {
	stub := &apiStub{}
	session, _ := testSetup(t, stub)

	result := callTool(t, session, "seek", map[string]interface{}{"position_ms": -5})

	assert.Contains(t, errorText(t, result), "position_ms")
	assert.Empty(t, stub.hits())
}

func TestSearch_EmptyQuery(t *testing.T) {
	stub := &apiStub{}
	session, _ := testSetup(t, stub)

	result := callTool(t, session, "search", map[string]interface{}{"query": ""})

	assert.Contains(t, errorText(t, result), "query")
	assert.Empty(t, stub.hits())
}

// --- Dispatch ---

func TestSeek_DispatchesOneCall(t *testing.T) {
	stub := &apiStub{}
	session, _ := testSetup(t, stub)

	result := callTool(t, session, "seek", map[string]interface{}{"position_ms": 30000})
	assert.False(t, result.IsError)

	var out ActionResult
	extractJSON(t, result, &out)
	assert.True(t, out.Success)

	require.Len(t, stub.hits(), 1)
	assert.Equal(t, "PUT /me/player/seek", stub.hits()[0])
}

func TestGetCurrentTrack(t *testing.T) {
	stub := &apiStub{responses: map[string]string{
		"GET /me/player/currently-playing": currentTrackJSON,
	}}
	session, _ := testSetup(t, stub)

	result := callTool(t, session, "get_current_track", nil)
	assert.False(t, result.IsError)

	var out spotify.CurrentlyPlaying
	extractJSON(t, result, &out)
	assert.True(t, out.Playing)
	require.NotNil(t, out.Track)
	assert.Equal(t, "Test Song", out.Track.Name)
	assert.Equal(t, []string{"Test Artist"}, out.Track.Artists)
}

func TestPause_NoActiveDevice(t *testing.T) {
	stub := &apiStub{
		responses: map[string]string{
			"PUT /me/player/pause": `{"error":{"status":404,"message":"Player command failed: No active device found","reason":"NO_ACTIVE_DEVICE"}}`,
		},
		status: map[string]int{"PUT /me/player/pause": http.StatusNotFound},
	}
	session, _ := testSetup(t, stub)

	result := callTool(t, session, "pause", nil)

	msg := errorText(t, result)
	assert.Contains(t, msg, "no active device")
	assert.NotContains(t, msg, "404", "raw status codes stay out of tool errors")
}

func TestGetDevices(t *testing.T) {
	stub := &apiStub{responses: map[string]string{
		"GET /me/player/devices": `{"devices":[{"id":"d1","name":"Desk Speaker","type":"Speaker","is_active":true,"volume_percent":30}]}`,
	}}
	session, _ := testSetup(t, stub)

	result := callTool(t, session, "get_devices", nil)
	assert.False(t, result.IsError)

	var out DevicesResult
	extractJSON(t, result, &out)
	require.Len(t, out.Devices, 1)
	assert.Equal(t, "Desk Speaker", out.Devices[0].Name)
	assert.True(t, out.Devices[0].IsActive)
}

func TestSearch_Tracks(t *testing.T) {
	stub := &apiStub{responses: map[string]string{
		"GET /search": `{"tracks":{"items":[{"id":"t1","uri":"spotify:track:t1","name":"Hit","artists":[{"name":"Artist"}]}]}}`,
	}}
	session, _ := testSetup(t, stub)

	result := callTool(t, session, "search", map[string]interface{}{"query": "hit"})
	assert.False(t, result.IsError)

	var out spotify.SearchResults
	extractJSON(t, result, &out)
	require.Len(t, out.Tracks, 1)
	assert.Equal(t, "Hit", out.Tracks[0].Name)
}

func TestAddToPlaylist_RequiresURIs(t *testing.T) {
	stub := &apiStub{}
	session, _ := testSetup(t, stub)

	result := callTool(t, session, "add_to_playlist", map[string]interface{}{
		"playlist_id": "p1",
		"uris":        []string{},
	})

	assert.Contains(t, errorText(t, result), "uris")
	assert.Empty(t, stub.hits())
}

func TestSaveTracks(t *testing.T) {
	stub := &apiStub{}
	session, _ := testSetup(t, stub)

	result := callTool(t, session, "save_tracks", map[string]interface{}{
		"track_ids": []string{"spotify:track:abc", "def"},
	})
	assert.False(t, result.IsError)

	require.Len(t, stub.hits(), 1)
	assert.Equal(t, "PUT /me/tracks", stub.hits()[0])
}

// --- Favorites ---

func TestFavoriteCurrent_ThenList(t *testing.T) {
	stub := &apiStub{responses: map[string]string{
		"GET /me/player/currently-playing": currentTrackJSON,
	}}
	session, favs := testSetup(t, stub)

	result := callTool(t, session, "favorite_current", nil)
	assert.False(t, result.IsError)

	var action ActionResult
	extractJSON(t, result, &action)
	assert.True(t, action.Success)
	assert.Contains(t, action.Message, "Test Song")

	result = callTool(t, session, "get_favorites", nil)
	var out FavoritesResult
	extractJSON(t, result, &out)
	require.Equal(t, 1, out.Total)
	assert.Equal(t, "t1", out.Favorites[0].TrackID)

	// Favoriting the same track again does not duplicate it.
	callTool(t, session, "favorite_current", nil)
	assert.Len(t, favs.List(), 1)
}

func TestFavoriteCurrent_NothingPlaying(t *testing.T) {
	stub := &apiStub{} // 204 from the stub means nothing playing
	session, _ := testSetup(t, stub)

	result := callTool(t, session, "favorite_current", nil)
	assert.Contains(t, errorText(t, result), "nothing is currently playing")
}

func TestRemoveFavorite_AcceptsURI(t *testing.T) {
	stub := &apiStub{}
	session, favs := testSetup(t, stub)

	_, err := favs.Add(models.Track{ID: "t1", URI: "spotify:track:t1", Name: "Song"})
	require.NoError(t, err)

	result := callTool(t, session, "remove_favorite", map[string]interface{}{
		"track_id": "spotify:track:t1",
	})
	assert.False(t, result.IsError)
	assert.Empty(t, favs.List())
}

func TestPlayFavorites(t *testing.T) {
	stub := &apiStub{}
	session, favs := testSetup(t, stub)

	_, err := favs.Add(models.Track{
		ID:      "t1",
		URI:     "spotify:track:t1",
		Name:    "Only Favorite",
		Artists: []string{"Test Artist"},
	})
	require.NoError(t, err)

	result := callTool(t, session, "play_favorites", nil)
	assert.False(t, result.IsError)

	var action ActionResult
	extractJSON(t, result, &action)
	assert.Contains(t, action.Message, "Only Favorite")

	require.Len(t, stub.hits(), 1)
	assert.Equal(t, "PUT /me/player/play", stub.hits()[0])
}

func TestPlayFavorites_Empty(t *testing.T) {
	stub := &apiStub{}
	session, _ := testSetup(t, stub)

	result := callTool(t, session, "play_favorites", nil)

	assert.Contains(t, errorText(t, result), "no favorites")
	assert.Empty(t, stub.hits(), "an empty collection must not start playback")
}

func TestClearFavorites(t *testing.T) {
	stub := &apiStub{}
	session, favs := testSetup(t, stub)

	_, err := favs.Add(models.Track{ID: "t1", URI: "spotify:track:t1", Name: "Song"})
	require.NoError(t, err)

	result := callTool(t, session, "clear_favorites", nil)
	assert.False(t, result.IsError)
	assert.Empty(t, favs.List())
}

// --- Protocol surface ---

func TestUnknownTool(t *testing.T) {
	stub := &apiStub{}
	session, _ := testSetup(t, stub)

	_, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "does_not_exist",
	})
	require.Error(t, err)
}

func TestListTools(t *testing.T) {
	stub := &apiStub{}
	session, _ := testSetup(t, stub)

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make(map[string]bool, len(tools.Tools))
	for _, tool := range tools.Tools {
		names[tool.Name] = true
		assert.NotEmpty(t, tool.Description, "tool %s has no description", tool.Name)
	}

	for _, want := range []string{
		"play", "pause", "next", "previous", "seek", "set_volume",
		"shuffle", "repeat", "get_current_track", "get_playback_state",
		"get_queue", "get_devices", "search", "add_to_queue",
		"get_playlists", "get_playlist_tracks", "add_to_playlist",
		"save_tracks", "remove_saved_tracks", "get_saved_tracks",
		"favorite_current", "get_favorites", "remove_favorite",
		"play_favorites", "clear_favorites",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}
