// Package auth implements the Spotify OAuth token lifecycle: the
// authorization-code-with-PKCE grant, silent refresh, and durable
// caching of the resulting token record.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/panuhen/spotify-mcp/internal/fsutil"
	"github.com/panuhen/spotify-mcp/internal/models"
)

const (
	// stateDirPerm is the permission mode for the state directory (~/.spotify-mcp/).
	stateDirPerm = fs.FileMode(0o700)

	// tokenFilePerm is the permission mode for the token file. It holds
	// bearer credentials and must not be readable by other users.
	tokenFilePerm = fs.FileMode(0o600)
)

// Store persists the token record as a single JSON file.
type Store struct {
	path string
}

// NewStore creates a token store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted token record, or nil when no usable
// record exists. A missing or unparseable file is not an error: it
// simply forces a fresh authorization.
func (s *Store) Load() (*models.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading token file: %w", err)
	}

	var tok models.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, nil
	}

	if tok.AccessToken == "" {
		return nil, nil
	}

	return &tok, nil
}

// Save atomically replaces the token file, so a crash mid-write never
// corrupts the previous valid record.
func (s *Store) Save(tok *models.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	if err := fsutil.WriteFileAtomic(s.path, data, tokenFilePerm, stateDirPerm); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}

	return nil
}

// Clear removes the token file. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}

	return nil
}

// RandomHex generates a cryptographically random hex string of the given byte length.
func RandomHex(byteLen int) string {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}
