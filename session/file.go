package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// fileState is the on-disk representation of the session. The field names
// match the storage keys used by the web storefront so the two stay
// interchangeable.
type fileState struct {
	Token     string `json:"auth-token,omitempty"`
	LoggedOut bool   `json:"user-logged-out,omitempty"`
}

// FileStore is a Store persisted to a JSON file, so the session survives a
// full process restart. Writes are atomic (temp file + rename).
type FileStore struct {
	mu    sync.Mutex
	path  string
	state fileState
}

// DefaultSessionPath returns the conventional location for the session file
// under the user's config directory.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "storefront", "session.json"), nil
}

// NewFileStore creates a file-backed session store at path, restoring any
// previously persisted state. A missing file is treated as an empty session.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	if err := json.Unmarshal(data, &s.state); err != nil {
		// A corrupt session file is not fatal. Start from a clean session.
		s.state = fileState{}
	}
	if s.state.LoggedOut {
		s.state.Token = ""
	}
	return s, nil
}

func (s *FileStore) Token(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token, nil
}

func (s *FileStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fileState{Token: token, LoggedOut: false}
	return s.persistLocked()
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fileState{LoggedOut: true}
	return s.persistLocked()
}

func (s *FileStore) LoggedOut(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LoggedOut, nil
}

func (s *FileStore) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
