package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Session holds the bearer token of the logged in user. With a path it is
// persisted between runs; without one it lives in memory only.
type Session struct {
	mu    sync.RWMutex
	path  string
	token string
}

// NewSession creates a session stored at path. An empty path keeps it in memory.
func NewSession(path string) *Session {
	return &Session{path: path}
}

// DefaultSessionPath is ~/.busctl/token
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".busctl", "token"), nil
}

// Load reads a previously saved token. A missing file is not an error.
func (s *Session) Load() error {
	if s.path == "" {
		return nil
	}

	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	s.mu.Lock()
	s.token = strings.TrimSpace(string(b))
	s.mu.Unlock()
	return nil
}

// Save stores token and persists it
func (s *Session) Save(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Token returns the current token, or "" when logged out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Clear logs out: the token is forgotten and the file removed
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
