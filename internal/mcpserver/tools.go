// Package mcpserver registers the MCP tools that expose Spotify
// playback control and the local favorites list. It adapts the
// spotify and favorites packages to the MCP SDK's tool handler
// interface; argument validation and error translation both live at
// this boundary so the protocol layer never sees raw API detail.
package mcpserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panuhen/spotify-mcp/internal/favorites"
	"github.com/panuhen/spotify-mcp/internal/spotify"
)

// RegisterTools adds all playback, catalog, and favorites tools to the
// given MCP server.
func RegisterTools(server *mcp.Server, sp *spotify.Client, favs *favorites.Store) {
	// Playback control.
	mcp.AddTool(server, &mcp.Tool{
		Name:        "play",
		Description: "Resume playback or play a specific track/album/playlist. Provide a Spotify URI to play specific content, or call without arguments to resume.",
	}, playHandler(sp))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pause",
		Description: "Pause Spotify playback.",
	}, pauseHandler(sp))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "next",
		Description: "Skip to the next track.",
	}, nextHandler(sp))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "previous",
		Description: "Go back to the previous track.",
	}, previousHandler(sp))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "seek",
		Description: "Seek to a position in the current track.",
	}, seekHandler(sp))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_volume",
		Description: "Set the playback volume (0-100).",
	}, setVolumeHandler(sp))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "shuffle",
		Description: "Toggle shuffle mode on or off.",
	}, shuffleHandler(sp))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "repeat",
		Description: "Set repeat mode: 'off', 'track' (repeat one), or 'context' (repeat all).",
	}, repeatHandler(sp))

	// State queries.
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_current_track",
		Description: "Get information about the currently playing track.",
	}, currentTrackHandler(sp))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_playback_state",
		Description: "Get the full playback state including device, progress, shuffle, and repeat settings.",
	}, playbackStateHandler(sp))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_queue",
		Description: "Get the upcoming tracks in the playback queue.",
	}, queueHandler(sp))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_devices",
		Description: "List available Spotify devices for playback.",
	}, devicesHandler(sp))

	// Search and queue mutation.
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search",
		Description: "Search Spotify for tracks, albums, artists, or playlists.",
	}, searchHandler(sp))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_queue",
		Description: "Add a track to the playback queue.",
	}, addToQueueHandler(sp))

	// Playlists.
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_playlists",
		Description: "List the user's playlists.",
	}, playlistsHandler(sp))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_playlist_tracks",
		Description: "Get tracks from a specific playlist.",
	}, playlistTracksHandler(sp))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_playlist",
		Description: "Add one or more tracks to a playlist.",
	}, addToPlaylistHandler(sp))

	// Library.
	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_tracks",
		Description: "Save tracks to the user's library (like/heart). Use this to add tracks to Liked Songs.",
	}, saveTracksHandler(sp))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_saved_tracks",
		Description: "Remove tracks from the user's library (unlike/unheart).",
	}, removeSavedTracksHandler(sp))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_saved_tracks",
		Description: "Get the user's saved/liked tracks from their library.",
	}, savedTracksHandler(sp))

	// Local favorites. These never touch the remote service except
	// favorite_current's read of the current track and play_favorites'
	// playback start.
	mcp.AddTool(server, &mcp.Tool{
		Name:        "favorite_current",
		Description: "Add the currently playing track to the local favorites list.",
	}, favoriteCurrentHandler(sp, favs))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_favorites",
		Description: "List the locally saved favorite tracks.",
	}, getFavoritesHandler(favs))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_favorite",
		Description: "Remove a track from the local favorites list.",
	}, removeFavoriteHandler(favs))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "play_favorites",
		Description: "Play a random track from the local favorites list.",
	}, playFavoritesHandler(sp, favs))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_favorites",
		Description: "Remove all tracks from the local favorites list.",
	}, clearFavoritesHandler(favs))
}

// --- Input types ---
// The MCP SDK infers JSON schema from these struct types via jsonschema tags.

// DeviceInput holds the optional device target shared by most playback tools.
type DeviceInput struct {
	DeviceID string `json:"device_id,omitempty" jsonschema:"target device ID, defaults to the active device"`
}

// PlayInput holds parameters for play.
type PlayInput struct {
	URI        string `json:"uri,omitempty" jsonschema:"Spotify URI of a track to play (spotify:track:...)"`
	ContextURI string `json:"context_uri,omitempty" jsonschema:"Spotify URI of an album or playlist to play (spotify:album:...)"`
	DeviceID   string `json:"device_id,omitempty" jsonschema:"target device ID, defaults to the active device"`
}

// SeekInput holds parameters for seek.
type SeekInput struct {
	PositionMS int    `json:"position_ms" jsonschema:"required,position in milliseconds"`
	DeviceID   string `json:"device_id,omitempty" jsonschema:"target device ID, defaults to the active device"`
}

// SetVolumeInput holds parameters for set_volume.
type SetVolumeInput struct {
	Volume   int    `json:"volume" jsonschema:"required,volume level from 0 to 100"`
	DeviceID string `json:"device_id,omitempty" jsonschema:"target device ID, defaults to the active device"`
}

// ShuffleInput holds parameters for shuffle.
type ShuffleInput struct {
	State    bool   `json:"state" jsonschema:"required,true to enable shuffle, false to disable"`
	DeviceID string `json:"device_id,omitempty" jsonschema:"target device ID, defaults to the active device"`
}

// RepeatInput holds parameters for repeat.
type RepeatInput struct {
	State    string `json:"state" jsonschema:"required,repeat mode: off, track, or context"`
	DeviceID string `json:"device_id,omitempty" jsonschema:"target device ID, defaults to the active device"`
}

// EmptyInput is used by tools without parameters.
type EmptyInput struct{}

// SearchInput holds parameters for search.
type SearchInput struct {
	Query string   `json:"query" jsonschema:"required,search query"`
	Types []string `json:"types,omitempty" jsonschema:"types to search for: track, album, artist, playlist; defaults to track"`
	Limit int      `json:"limit,omitempty" jsonschema:"max results per type (1-50), defaults to 10"`
}

// AddToQueueInput holds parameters for add_to_queue.
type AddToQueueInput struct {
	URI      string `json:"uri" jsonschema:"required,Spotify URI of the track to add"`
	DeviceID string `json:"device_id,omitempty" jsonschema:"target device ID, defaults to the active device"`
}

// PlaylistsInput holds parameters for get_playlists.
type PlaylistsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"max playlists to return (1-50), defaults to 50"`
}

// PlaylistTracksInput holds parameters for get_playlist_tracks.
type PlaylistTracksInput struct {
	PlaylistID string `json:"playlist_id" jsonschema:"required,playlist ID or URI"`
	Limit      int    `json:"limit,omitempty" jsonschema:"max tracks to return (1-100), defaults to 100"`
}

// AddToPlaylistInput holds parameters for add_to_playlist.
type AddToPlaylistInput struct {
	PlaylistID string   `json:"playlist_id" jsonschema:"required,playlist ID or URI"`
	URIs       []string `json:"uris" jsonschema:"required,Spotify track URIs to add"`
}

// TrackIDsInput holds parameters for save_tracks and remove_saved_tracks.
type TrackIDsInput struct {
	TrackIDs []string `json:"track_ids" jsonschema:"required,Spotify track URIs or IDs"`
}

// SavedTracksInput holds parameters for get_saved_tracks.
type SavedTracksInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"max tracks to return (1-50), defaults to 20"`
}

// RemoveFavoriteInput holds parameters for remove_favorite.
type RemoveFavoriteInput struct {
	TrackID string `json:"track_id" jsonschema:"required,track ID or spotify:track: URI to remove"`
}
