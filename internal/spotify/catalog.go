package spotify

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultSearchLimit   = 10
	defaultPlaylistLimit = 50
	defaultTracksLimit   = 100
	defaultSavedLimit    = 20
)

var validSearchTypes = map[string]bool{
	"track":    true,
	"album":    true,
	"artist":   true,
	"playlist": true,
}

// Search queries the catalog for the given types (track, album,
// artist, playlist). Unknown types are dropped; an empty list means
// tracks only.
func (c *Client) Search(ctx context.Context, query string, types []string, limit int) (*SearchResults, error) {
	kept := make([]string, 0, len(types))
	for _, t := range types {
		if validSearchTypes[t] {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		kept = []string{"track"}
	}

	if limit <= 0 {
		limit = defaultSearchLimit
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", strings.Join(kept, ","))
	q.Set("limit", strconv.Itoa(limit))

	var raw struct {
		Tracks *struct {
			Items []apiTrack `json:"items"`
		} `json:"tracks"`
		Albums *struct {
			Items []apiAlbum `json:"items"`
		} `json:"albums"`
		Artists *struct {
			Items []apiArtist `json:"items"`
		} `json:"artists"`
		Playlists *struct {
			Items []*apiPlaylist `json:"items"`
		} `json:"playlists"`
	}

	if err := c.get(ctx, "/search", q, &raw); err != nil {
		return nil, err
	}

	results := &SearchResults{}

	if raw.Tracks != nil {
		for i := range raw.Tracks.Items {
			if t := raw.Tracks.Items[i].toModel(); t != nil {
				results.Tracks = append(results.Tracks, *t)
			}
		}
	}

	if raw.Albums != nil {
		for _, a := range raw.Albums.Items {
			names := make([]string, 0, len(a.Artists))
			for _, art := range a.Artists {
				names = append(names, art.Name)
			}

			results.Albums = append(results.Albums, AlbumResult{
				Name:    a.Name,
				URI:     a.URI,
				Artists: names,
			})
		}
	}

	if raw.Artists != nil {
		for _, a := range raw.Artists.Items {
			results.Artists = append(results.Artists, ArtistResult{
				Name:   a.Name,
				URI:    a.URI,
				Genres: a.Genres,
			})
		}
	}

	if raw.Playlists != nil {
		// The API returns null playlist entries for some regions.
		for _, p := range raw.Playlists.Items {
			if p == nil {
				continue
			}

			results.Playlists = append(results.Playlists, PlaylistResult{
				Name:   p.Name,
				URI:    p.URI,
				Owner:  p.Owner.DisplayName,
				Tracks: p.Tracks.Total,
			})
		}
	}

	return results, nil
}

// Playlists lists the user's playlists.
func (c *Client) Playlists(ctx context.Context, limit int) ([]Playlist, error) {
	if limit <= 0 {
		limit = defaultPlaylistLimit
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var raw struct {
		Items []*apiPlaylist `json:"items"`
	}

	if err := c.get(ctx, "/me/playlists", q, &raw); err != nil {
		return nil, err
	}

	playlists := make([]Playlist, 0, len(raw.Items))
	for _, p := range raw.Items {
		if p == nil {
			continue
		}

		playlists = append(playlists, Playlist{
			ID:     p.ID,
			Name:   p.Name,
			URI:    p.URI,
			Owner:  p.Owner.DisplayName,
			Tracks: p.Tracks.Total,
		})
	}

	return playlists, nil
}

// PlaylistTracks returns tracks from a playlist, plus the playlist's
// total track count. The playlist reference may be an ID or a URI.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string, limit int) ([]PlaylistTrack, int, error) {
	if limit <= 0 {
		limit = defaultTracksLimit
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var raw struct {
		Total int `json:"total"`
		Items []struct {
			AddedAt string    `json:"added_at"`
			Track   *apiTrack `json:"track"`
		} `json:"items"`
	}

	path := "/playlists/" + url.PathEscape(PlaylistID(playlistID)) + "/tracks"
	if err := c.get(ctx, path, q, &raw); err != nil {
		return nil, 0, err
	}

	tracks := make([]PlaylistTrack, 0, len(raw.Items))
	for _, item := range raw.Items {
		t := item.Track.toModel()
		if t == nil {
			continue
		}

		tracks = append(tracks, PlaylistTrack{Track: *t, AddedAt: item.AddedAt})
	}

	total := raw.Total
	if total == 0 {
		total = len(tracks)
	}

	return tracks, total, nil
}

// AddToPlaylist appends tracks to a playlist.
func (c *Client) AddToPlaylist(ctx context.Context, playlistID string, uris []string) error {
	body := map[string]any{"uris": uris}
	path := "/playlists/" + url.PathEscape(PlaylistID(playlistID)) + "/tracks"

	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

// SaveTracks adds tracks to the user's library. References may be IDs
// or URIs.
func (c *Client) SaveTracks(ctx context.Context, refs []string) error {
	return c.do(ctx, http.MethodPut, "/me/tracks", nil, map[string]any{"ids": trackIDs(refs)}, nil)
}

// RemoveSavedTracks removes tracks from the user's library.
func (c *Client) RemoveSavedTracks(ctx context.Context, refs []string) error {
	return c.do(ctx, http.MethodDelete, "/me/tracks", nil, map[string]any{"ids": trackIDs(refs)}, nil)
}

// SavedTracks returns the user's library tracks plus the library's
// total count.
func (c *Client) SavedTracks(ctx context.Context, limit int) ([]SavedTrack, int, error) {
	if limit <= 0 {
		limit = defaultSavedLimit
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var raw struct {
		Total int `json:"total"`
		Items []struct {
			AddedAt string    `json:"added_at"`
			Track   *apiTrack `json:"track"`
		} `json:"items"`
	}

	if err := c.get(ctx, "/me/tracks", q, &raw); err != nil {
		return nil, 0, err
	}

	tracks := make([]SavedTrack, 0, len(raw.Items))
	for _, item := range raw.Items {
		t := item.Track.toModel()
		if t == nil {
			continue
		}

		tracks = append(tracks, SavedTrack{Track: *t, AddedAt: item.AddedAt})
	}

	total := raw.Total
	if total == 0 {
		total = len(tracks)
	}

	return tracks, total, nil
}

func trackIDs(refs []string) []string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, TrackID(r))
	}

	return ids
}
