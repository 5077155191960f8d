package favorites

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/panuhen/spotify-mcp/internal/errors"
	"github.com/panuhen/spotify-mcp/internal/models"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "favorites.json")
	s, err := Open(path, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, path
}

func track(id, name string) models.Track {
	return models.Track{
		ID:      id,
		URI:     "spotify:track:" + id,
		Name:    name,
		Artists: []string{"Test Artist"},
	}
}

func TestStore_AddAndList(t *testing.T) {
	s, _ := testStore(t)

	added, err := s.Add(track("t1", "First"))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add(track("t2", "Second"))
	require.NoError(t, err)
	assert.True(t, added)

	entries := s.List()
	require.Len(t, entries, 2)
	assert.Equal(t, "t1", entries[0].TrackID)
	assert.Equal(t, "t2", entries[1].TrackID)
	assert.False(t, entries[0].AddedAt.IsZero())
}

func TestStore_AddExistingUpdatesInPlace(t *testing.T) {
	s, _ := testStore(t)

	_, err := s.Add(track("t1", "Old Name"))
	require.NoError(t, err)

	added, err := s.Add(track("t1", "New Name"))
	require.NoError(t, err)
	assert.False(t, added)

	entries := s.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "New Name", entries[0].Track.Name)
}

func TestStore_AddWithoutID(t *testing.T) {
	s, _ := testStore(t)

	_, err := s.Add(models.Track{Name: "No ID"})
	require.Error(t, err)
	assert.Empty(t, s.List())
}

func TestStore_Remove(t *testing.T) {
	s, _ := testStore(t)

	_, err := s.Add(track("t1", "First"))
	require.NoError(t, err)

	removed, err := s.Remove("t1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, s.List())

	// Removing an absent ID is a no-op.
	removed, err = s.Remove("t1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStore_PickRandom(t *testing.T) {
	s, _ := testStore(t)

	_, err := s.PickRandom()
	require.ErrorIs(t, err, apperrors.ErrNoFavorites)

	_, err = s.Add(track("t1", "Only"))
	require.NoError(t, err)

	entry, err := s.PickRandom()
	require.NoError(t, err)
	assert.Equal(t, "t1", entry.TrackID)
}

func TestStore_ClearThenPickRandom(t *testing.T) {
	s, _ := testStore(t)

	_, err := s.Add(track("t1", "First"))
	require.NoError(t, err)
	require.NoError(t, s.Clear())

	assert.Empty(t, s.List())

	_, err = s.PickRandom()
	require.ErrorIs(t, err, apperrors.ErrNoFavorites)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.json")
	logger := slog.New(slog.DiscardHandler)

	s1, err := Open(path, logger)
	require.NoError(t, err)

	_, err = s1.Add(track("t1", "Survivor"))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path, logger)
	require.NoError(t, err)
	defer s2.Close()

	entries := s2.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "Survivor", entries[0].Track.Name)
}

func TestStore_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "favorites.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	s, err := Open(path, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer s.Close()

	assert.Empty(t, s.List())

	// The store is still writable after recovering.
	_, err = s.Add(track("t1", "Fresh Start"))
	require.NoError(t, err)
}

func TestStore_EmptyCollectionWritesEmptyArray(t *testing.T) {
	s, path := testStore(t)

	require.NoError(t, s.Clear())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestStore_ReloadsOnExternalEdit(t *testing.T) {
	s, path := testStore(t)

	_, err := s.Add(track("t1", "Mine"))
	require.NoError(t, err)

	// Simulate an external editor replacing the file.
	external := []Entry{{
		TrackID: "t9",
		Track:   track("t9", "Edited Elsewhere"),
		AddedAt: time.Now().UTC(),
	}}
	data, err := json.Marshal(external)
	require.NoError(t, err)

	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, data, 0o600))
	require.NoError(t, os.Rename(tmp, path))

	assert.Eventually(t, func() bool {
		entries := s.List()
		return len(entries) == 1 && entries[0].TrackID == "t9"
	}, 2*time.Second, 20*time.Millisecond)
}
