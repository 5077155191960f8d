// Package favorites implements the local favorites list: a small JSON
// file of track references kept independently of the user's Spotify
// library, so favorites survive without any remote scope.
package favorites

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	apperrors "github.com/panuhen/spotify-mcp/internal/errors"
	"github.com/panuhen/spotify-mcp/internal/fsutil"
	"github.com/panuhen/spotify-mcp/internal/models"
)

const (
	dirPerm  = fs.FileMode(0o700)
	filePerm = fs.FileMode(0o600)
)

// Entry is one favorited track. TrackID is unique within the
// collection; adding an existing ID updates the entry in place.
type Entry struct {
	TrackID string       `json:"track_id"`
	Track   models.Track `json:"track"`
	AddedAt time.Time    `json:"added_at"`
}

// Store holds the favorites collection in memory and mirrors every
// mutation to disk with an atomic replace. All mutations are
// serialized by an internal mutex, so concurrent tool calls cannot
// lose updates. An fsnotify watcher reloads the in-memory copy when
// the file is replaced by an external editor.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries []Entry

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Open loads the favorites file at path (a missing or corrupt file is
// an empty collection, never fatal) and starts the reload watcher.
func Open(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		path:   filepath.Clean(path),
		logger: logger,
	}
	s.entries = s.load()
	s.startWatcher()

	return s, nil
}

// Close stops the reload watcher. The collection itself is already on
// disk; Close never drops data.
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}

	close(s.done)

	return s.watcher.Close()
}

// Add inserts a favorite, or refreshes the stored metadata when the
// track is already present. Returns true when a new entry was created.
func (s *Store) Add(track models.Track) (bool, error) {
	if track.ID == "" {
		return false, fmt.Errorf("track has no ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].TrackID == track.ID {
			s.entries[i].Track = track
			return false, s.persist()
		}
	}

	s.entries = append(s.entries, Entry{
		TrackID: track.ID,
		Track:   track,
		AddedAt: time.Now().UTC(),
	})

	return true, s.persist()
}

// Remove deletes a favorite by track ID. Removing an absent ID is a
// no-op, not an error; the return value reports whether an entry was
// actually removed.
func (s *Store) Remove(trackID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].TrackID == trackID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true, s.persist()
		}
	}

	return false, nil
}

// List returns a copy of all entries in insertion order.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)

	return out
}

// Clear empties the collection and persists immediately.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil

	return s.persist()
}

// PickRandom returns one uniformly random favorite, or ErrNoFavorites
// when the collection is empty.
func (s *Store) PickRandom() (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return Entry{}, apperrors.ErrNoFavorites
	}

	return s.entries[rand.IntN(len(s.entries))], nil
}

// load reads the favorites file. Missing or corrupt files yield an
// empty collection: favorites are a convenience layer, never
// authoritative state worth failing over.
func (s *Store) load() []Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("favorites file unreadable, starting empty",
			slog.String("path", s.path),
			slog.String("error", err.Error()))

		return nil
	}

	return entries
}

// persist writes the collection to disk. Callers must hold s.mu.
func (s *Store) persist() error {
	data := []byte("[]")

	if len(s.entries) > 0 {
		var err error

		data, err = json.MarshalIndent(s.entries, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding favorites: %w", err)
		}
	}

	if err := fsutil.WriteFileAtomic(s.path, data, filePerm, dirPerm); err != nil {
		return fmt.Errorf("writing favorites file: %w", err)
	}

	return nil
}

// startWatcher begins watching the state directory for external edits
// to the favorites file. Watch failures degrade to read-at-open
// behavior; they never block the store.
func (s *Store) startWatcher() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Debug("favorites watcher unavailable", slog.String("error", err.Error()))
		return
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		w.Close()
		return
	}

	// Watch the directory, not the file: atomic replaces swap the
	// inode out from under a file-level watch.
	if err := w.Add(dir); err != nil {
		s.logger.Debug("favorites watcher unavailable", slog.String("error", err.Error()))
		w.Close()

		return
	}

	s.watcher = w
	s.done = make(chan struct{})

	go s.watchLoop()
}

func (s *Store) watchLoop() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(ev.Name) != s.path {
				continue
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			fresh := s.load()
			s.mu.Lock()
			s.entries = fresh
			s.mu.Unlock()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}

			s.logger.Debug("favorites watcher error", slog.String("error", err.Error()))

		case <-s.done:
			return
		}
	}
}
