package spotify

import "github.com/panuhen/spotify-mcp/internal/models"

// Wire shapes for the Web API, trimmed to the fields the tools
// surface. Reference:
// https://developer.spotify.com/documentation/web-api/reference/

type apiArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	URI    string   `json:"uri"`
	Genres []string `json:"genres"`
}

type apiAlbum struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	URI     string      `json:"uri"`
	Artists []apiArtist `json:"artists"`
}

type apiTrack struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	URI        string      `json:"uri"`
	DurationMS int         `json:"duration_ms"`
	Artists    []apiArtist `json:"artists"`
	Album      apiAlbum    `json:"album"`
}

func (t *apiTrack) toModel() *models.Track {
	if t == nil || t.ID == "" && t.URI == "" {
		return nil
	}

	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}

	return &models.Track{
		ID:         t.ID,
		URI:        t.URI,
		Name:       t.Name,
		Artists:    names,
		Album:      t.Album.Name,
		DurationMS: t.DurationMS,
	}
}

type apiDevice struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	VolumePercent int    `json:"volume_percent"`
}

type apiOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type apiPlaylist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	URI    string   `json:"uri"`
	Owner  apiOwner `json:"owner"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

// --- Result types surfaced to tools ---

// Device is a playback target known to the user's account.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
	Volume   int    `json:"volume"`
}

// CurrentlyPlaying describes the track playing right now, if any.
type CurrentlyPlaying struct {
	Playing    bool          `json:"playing"`
	ProgressMS int           `json:"progress_ms,omitempty"`
	Track      *models.Track `json:"track,omitempty"`
}

// PlaybackState is the full player state: device, mode flags, and the
// current track.
type PlaybackState struct {
	Active     bool          `json:"active"`
	IsPlaying  bool          `json:"is_playing"`
	Shuffle    bool          `json:"shuffle"`
	Repeat     string        `json:"repeat"`
	ProgressMS int           `json:"progress_ms"`
	Device     *Device       `json:"device,omitempty"`
	Track      *models.Track `json:"track,omitempty"`
}

// Queue is the currently playing track plus upcoming tracks.
type Queue struct {
	CurrentlyPlaying *models.Track  `json:"currently_playing,omitempty"`
	Queue            []models.Track `json:"queue"`
}

// AlbumResult is a search hit for an album.
type AlbumResult struct {
	Name    string   `json:"name"`
	URI     string   `json:"uri"`
	Artists []string `json:"artists"`
}

// ArtistResult is a search hit for an artist.
type ArtistResult struct {
	Name   string   `json:"name"`
	URI    string   `json:"uri"`
	Genres []string `json:"genres,omitempty"`
}

// PlaylistResult is a search hit for a playlist.
type PlaylistResult struct {
	Name   string `json:"name"`
	URI    string `json:"uri"`
	Owner  string `json:"owner"`
	Tracks int    `json:"tracks"`
}

// SearchResults holds per-type search hits. Only the requested types
// are populated.
type SearchResults struct {
	Tracks    []models.Track   `json:"tracks,omitempty"`
	Albums    []AlbumResult    `json:"albums,omitempty"`
	Artists   []ArtistResult   `json:"artists,omitempty"`
	Playlists []PlaylistResult `json:"playlists,omitempty"`
}

// Playlist is one of the user's playlists.
type Playlist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URI    string `json:"uri"`
	Owner  string `json:"owner"`
	Tracks int    `json:"tracks"`
}

// PlaylistTrack is a track inside a playlist, with the time it was
// added there.
type PlaylistTrack struct {
	models.Track
	AddedAt string `json:"added_at,omitempty"`
}

// SavedTrack is a track in the user's library.
type SavedTrack struct {
	models.Track
	AddedAt string `json:"added_at,omitempty"`
}
