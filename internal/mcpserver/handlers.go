package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apperrors "github.com/panuhen/spotify-mcp/internal/errors"
	"github.com/panuhen/spotify-mcp/internal/favorites"
	"github.com/panuhen/spotify-mcp/internal/models"
	"github.com/panuhen/spotify-mcp/internal/spotify"
)

// ActionResult is the payload for tools that perform an action rather
// than return data.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// FavoritesResult is the payload for get_favorites.
type FavoritesResult struct {
	Favorites []favorites.Entry `json:"favorites"`
	Total     int               `json:"total"`
}

// TracksResult is the payload for track listings with a total count.
type TracksResult[T any] struct {
	Tracks []T `json:"tracks"`
	Total  int `json:"total"`
}

// PlaylistsResult is the payload for get_playlists.
type PlaylistsResult struct {
	Playlists []spotify.Playlist `json:"playlists"`
}

// DevicesResult is the payload for get_devices.
type DevicesResult struct {
	Devices []spotify.Device `json:"devices"`
}

// --- Playback control handlers ---

func playHandler(sp *spotify.Client) mcp.ToolHandlerFor[PlayInput, *ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PlayInput) (*mcp.CallToolResult, *ActionResult, error) {
		err := sp.Play(ctx, spotify.PlayOptions{
			URI:        input.URI,
			ContextURI: input.ContextURI,
			DeviceID:   input.DeviceID,
		})
		if err != nil {
			return nil, nil, friendlyError(err)
		}

		return ok("Playback started")
	}
}

func pauseHandler(sp *spotify.Client) mcp.ToolHandlerFor[DeviceInput, *ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DeviceInput) (*mcp.CallToolResult, *ActionResult, error) {
		if err := sp.Pause(ctx, input.DeviceID); err != nil {
			return nil, nil, friendlyError(err)
		}

		return ok("Playback paused")
	}
}

func nextHandler(sp *spotify.Client) mcp.ToolHandlerFor[DeviceInput, *ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DeviceInput) (*mcp.CallToolResult, *ActionResult, error) {
		if err := sp.Next(ctx, input.DeviceID); err != nil {
			return nil, nil, friendlyError(err)
		}

		return ok("Skipped to next track")
	}
}

func previousHandler(sp *spotify.Client) mcp.ToolHandlerFor[DeviceInput, *ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DeviceInput) (*mcp.CallToolResult, *ActionResult, error) {
		if err := sp.Previous(ctx, input.DeviceID); err != nil {
			return nil, nil, friendlyError(err)
		}

		return ok("Went to previous track")
	}
}

func seekHandler(sp *spotify.Client) mcp.ToolHandlerFor[SeekInput, *ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SeekInput) (*mcp.CallToolResult, *ActionResult, error) {
		if input.PositionMS < 0 {
			return nil, nil, fmt.Errorf("invalid position_ms: must be non-negative, got %d", input.PositionMS)
		}

		if err := sp.Seek(ctx, input.PositionMS, input.DeviceID); err != nil {
			return nil, nil, friendlyError(err)
		}

		return ok(fmt.Sprintf("Seeked to %dms", input.PositionMS))
	}
}

func setVolumeHandler(sp *spotify.Client) mcp.ToolHandlerFor[SetVolumeInput, *ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SetVolumeInput) (*mcp.CallToolResult, *ActionResult, error) {
		if input.Volume < 0 || input.Volume > 100 {
			return nil, nil, fmt.Errorf("invalid volume: must be between 0 and 100, got %d", input.Volume)
		}

		if err := sp.SetVolume(ctx, input.Volume, input.DeviceID); err != nil {
			return nil, nil, friendlyError(err)
		}

		return ok(fmt.Sprintf("Volume set to %d%%", input.Volume))
	}
}

func shuffleHandler(sp *spotify.Client) mcp.ToolHandlerFor[ShuffleInput, *ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ShuffleInput) (*mcp.CallToolResult, *ActionResult, error) {
		if err := sp.SetShuffle(ctx, input.State, input.DeviceID); err != nil {
			return nil, nil, friendlyError(err)
		}

		if input.State {
			return ok("Shuffle on")
		}

		return ok("Shuffle off")
	}
}

func repeatHandler(sp *spotify.Client) mcp.ToolHandlerFor[RepeatInput, *ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RepeatInput) (*mcp.CallToolResult, *ActionResult, error) {
		switch input.State {
		case "off", "track", "context":
		default:
			return nil, nil, fmt.Errorf("invalid state: must be 'off', 'track', or 'context', got %q", input.State)
		}

		if err := sp.SetRepeat(ctx, input.State, input.DeviceID); err != nil {
			return nil, nil, friendlyError(err)
		}

		return ok("Repeat mode set to " + input.State)
	}
}

// --- State query handlers ---

func currentTrackHandler(sp *spotify.Client) mcp.ToolHandlerFor[EmptyInput, *spotify.CurrentlyPlaying] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, *spotify.CurrentlyPlaying, error) {
		current, err := sp.CurrentTrack(ctx)
		if err != nil {
			return nil, nil, friendlyError(err)
		}

		return textResult(current), current, nil
	}
}

func playbackStateHandler(sp *spotify.Client) mcp.ToolHandlerFor[EmptyInput, *spotify.PlaybackState] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, *spotify.PlaybackState, error) {
		state, err := sp.State(ctx)
		if err != nil {
			return nil, nil, friendlyError(err)
		}

		return textResult(state), state, nil
	}
}

func queueHandler(sp *spotify.Client) mcp.ToolHandlerFor[EmptyInput, *spotify.Queue] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, *spotify.Queue, error) {
		queue, err := sp.GetQueue(ctx)
		if err != nil {
			return nil, nil, friendlyError(err)
		}

		return textResult(queue), queue, nil
	}
}

func devicesHandler(sp *spotify.Client) mcp.ToolHandlerFor[EmptyInput, *DevicesResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, *DevicesResult, error) {
		devices, err := sp.Devices(ctx)
		if err != nil {
			return nil, nil, friendlyError(err)
		}

		result := &DevicesResult{Devices: devices}

		return textResult(result), result, nil
	}
}

// --- Search, queue, playlist, library handlers ---

func searchHandler(sp *spotify.Client) mcp.ToolHandlerFor[SearchInput, *spotify.SearchResults] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, *spotify.SearchResults, error) {
		if input.Query == "" {
			return nil, nil, errors.New("invalid query: must not be empty")
		}

		if input.Limit < 0 || input.Limit > 50 {
			return nil, nil, fmt.Errorf("invalid limit: must be between 1 and 50, got %d", input.Limit)
		}

		results, err := sp.Search(ctx, input.Query, input.Types, input.Limit)
		if err != nil {
			return nil, nil, friendlyError(err)
		}

		return textResult(results), results, nil
	}
}

func addToQueueHandler(sp *spotify.Client) mcp.ToolHandlerFor[AddToQueueInput, *ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AddToQueueInput) (*mcp.CallToolResult, *ActionResult, error) {
		if input.URI == "" {
			return nil, nil, errors.New("invalid uri: must not be empty")
		}

		if err := sp.AddToQueue(ctx, input.URI, input.DeviceID); err != nil {
			return nil, nil, friendlyError(err)
		}

		return ok("Added to queue")
	}
}

func playlistsHandler(sp *spotify.Client) mcp.ToolHandlerFor[PlaylistsInput, *PlaylistsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PlaylistsInput) (*mcp.CallToolResult, *PlaylistsResult, error) {
		playlists, err := sp.Playlists(ctx, input.Limit)
		if err != nil {
			return nil, nil, friendlyError(err)
		}

		result := &PlaylistsResult{Playlists: playlists}

		return textResult(result), result, nil
	}
}

func playlistTracksHandler(sp *spotify.Client) mcp.ToolHandlerFor[PlaylistTracksInput, *TracksResult[spotify.PlaylistTrack]] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PlaylistTracksInput) (*mcp.CallToolResult, *TracksResult[spotify.PlaylistTrack], error) {
		if input.PlaylistID == "" {
			return nil, nil, errors.New("invalid playlist_id: must not be empty")
		}

		tracks, total, err := sp.PlaylistTracks(ctx, input.PlaylistID, input.Limit)
		if err != nil {
			return nil, nil, friendlyError(err)
		}

		result := &TracksResult[spotify.PlaylistTrack]{Tracks: tracks, Total: total}

		return textResult(result), result, nil
	}
}

func addToPlaylistHandler(sp *spotify.Client) mcp.ToolHandlerFor[AddToPlaylistInput, *ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AddToPlaylistInput) (*mcp.CallToolResult, *ActionResult, error) {
		if input.PlaylistID == "" {
			return nil, nil, errors.New("invalid playlist_id: must not be empty")
		}

		if len(input.URIs) == 0 {
			return nil, nil, errors.New("invalid uris: must not be empty")
		}

		if err := sp.AddToPlaylist(ctx, input.PlaylistID, input.URIs); err != nil {
			return nil, nil, friendlyError(err)
		}

		return ok(fmt.Sprintf("Added %d track(s) to playlist", len(input.URIs)))
	}
}

func saveTracksHandler(sp *spotify.Client) mcp.ToolHandlerFor[TrackIDsInput, *ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TrackIDsInput) (*mcp.CallToolResult, *ActionResult, error) {
		if len(input.TrackIDs) == 0 {
			return nil, nil, errors.New("invalid track_ids: must not be empty")
		}

		if err := sp.SaveTracks(ctx, input.TrackIDs); err != nil {
			return nil, nil, friendlyError(err)
		}

		return ok(fmt.Sprintf("Saved %d track(s) to your library", len(input.TrackIDs)))
	}
}

func removeSavedTracksHandler(sp *spotify.Client) mcp.ToolHandlerFor[TrackIDsInput, *ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TrackIDsInput) (*mcp.CallToolResult, *ActionResult, error) {
		if len(input.TrackIDs) == 0 {
			return nil, nil, errors.New("invalid track_ids: must not be empty")
		}

		if err := sp.RemoveSavedTracks(ctx, input.TrackIDs); err != nil {
			return nil, nil, friendlyError(err)
		}

		return ok(fmt.Sprintf("Removed %d track(s) from your library", len(input.TrackIDs)))
	}
}

func savedTracksHandler(sp *spotify.Client) mcp.ToolHandlerFor[SavedTracksInput, *TracksResult[spotify.SavedTrack]] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SavedTracksInput) (*mcp.CallToolResult, *TracksResult[spotify.SavedTrack], error) {
		tracks, total, err := sp.SavedTracks(ctx, input.Limit)
		if err != nil {
			return nil, nil, friendlyError(err)
		}

		result := &TracksResult[spotify.SavedTrack]{Tracks: tracks, Total: total}

		return textResult(result), result, nil
	}
}

// --- Favorites handlers ---

func favoriteCurrentHandler(sp *spotify.Client, favs *favorites.Store) mcp.ToolHandlerFor[EmptyInput, *ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, *ActionResult, error) {
		current, err := sp.CurrentTrack(ctx)
		if err != nil {
			return nil, nil, friendlyError(err)
		}

		if current.Track == nil {
			return nil, nil, errors.New("nothing is currently playing")
		}

		added, err := favs.Add(*current.Track)
		if err != nil {
			return nil, nil, err
		}

		if !added {
			return ok(fmt.Sprintf("'%s' is already in favorites", current.Track.Name))
		}

		return ok(fmt.Sprintf("Added '%s' to favorites", current.Track.Name))
	}
}

func getFavoritesHandler(favs *favorites.Store) mcp.ToolHandlerFor[EmptyInput, *FavoritesResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, *FavoritesResult, error) {
		entries := favs.List()
		if entries == nil {
			entries = []favorites.Entry{}
		}

		result := &FavoritesResult{Favorites: entries, Total: len(entries)}

		return textResult(result), result, nil
	}
}

func removeFavoriteHandler(favs *favorites.Store) mcp.ToolHandlerFor[RemoveFavoriteInput, *ActionResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input RemoveFavoriteInput) (*mcp.CallToolResult, *ActionResult, error) {
		if input.TrackID == "" {
			return nil, nil, errors.New("invalid track_id: must not be empty")
		}

		removed, err := favs.Remove(spotify.TrackID(input.TrackID))
		if err != nil {
			return nil, nil, err
		}

		if !removed {
			return ok("Track was not in favorites")
		}

		return ok("Removed from favorites")
	}
}

func playFavoritesHandler(sp *spotify.Client, favs *favorites.Store) mcp.ToolHandlerFor[DeviceInput, *ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DeviceInput) (*mcp.CallToolResult, *ActionResult, error) {
		entry, err := favs.PickRandom()
		if err != nil {
			if errors.Is(err, apperrors.ErrNoFavorites) {
				return nil, nil, errors.New("no favorites saved yet: play something and use favorite_current first")
			}

			return nil, nil, err
		}

		err = sp.Play(ctx, spotify.PlayOptions{URI: entry.Track.URI, DeviceID: input.DeviceID})
		if err != nil {
			return nil, nil, friendlyError(err)
		}

		return ok(fmt.Sprintf("Playing '%s' by %s", entry.Track.Name, artistList(entry.Track)))
	}
}

func clearFavoritesHandler(favs *favorites.Store) mcp.ToolHandlerFor[EmptyInput, *ActionResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, *ActionResult, error) {
		if err := favs.Clear(); err != nil {
			return nil, nil, err
		}

		return ok("Cleared all favorites")
	}
}

// --- Helpers ---

func artistList(t models.Track) string {
	if len(t.Artists) == 0 {
		return "unknown artist"
	}

	out := t.Artists[0]
	for _, a := range t.Artists[1:] {
		out += ", " + a
	}

	return out
}

// friendlyError rephrases remote API failures so the protocol layer
// never sees raw transport detail.
func friendlyError(err error) error {
	var apiErr *spotify.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.NoActiveDevice():
			return errors.New("no active device found: open Spotify on a device and try again")
		case apiErr.Status == http.StatusUnauthorized:
			return errors.New("authentication failed: please re-authenticate")
		case apiErr.Status == http.StatusForbidden:
			return errors.New("permission denied: check app scopes")
		case apiErr.Status == http.StatusNotFound:
			return errors.New("resource not found")
		case apiErr.Status == http.StatusTooManyRequests:
			return errors.New("rate limited by Spotify: wait and try again")
		}

		return fmt.Errorf("spotify error %d: %s", apiErr.Status, apiErr.Message)
	}

	if spotify.IsTransient(err) {
		return fmt.Errorf("could not reach Spotify: %w", errors.Unwrap(err))
	}

	return err
}

func ok(message string) (*mcp.CallToolResult, *ActionResult, error) {
	result := &ActionResult{Success: true, Message: message}
	return textResult(result), result, nil
}

// textResult builds a CallToolResult with JSON text content from any
// value, alongside the structured output the SDK populates.
func textResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("error marshaling result: %v", err)}},
			IsError: true,
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
