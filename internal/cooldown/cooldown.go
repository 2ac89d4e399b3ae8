// Package cooldown keeps the client-side submission cooldown in a local state file.
// It is a courtesy to well-behaved clients and trivially bypassed; the server
// limiter is the enforcing one.
package cooldown

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Key is the state entry holding the last submission time in unix milliseconds.
const Key = "helloimsorry:lastSubmit"

// Dir returns the per-user state directory.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "sorryboard")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sorryboard")
}

// Store persists the cooldown timestamp in a small JSON object.
type Store struct {
	path   string
	window time.Duration
}

// New returns a store backed by path. An empty path uses Dir()/state.json.
func New(path string, window time.Duration) *Store {
	if path == "" {
		path = filepath.Join(Dir(), "state.json")
	}
	return &Store{path: path, window: window}
}

func (s *Store) read() (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	state := map[string]string{}
	if err := json.Unmarshal(b, &state); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return state, nil
}

// Check reports whether a submission may be made at now. When it may not,
// remaining is the time left in the window. Unreadable state never blocks.
func (s *Store) Check(now time.Time) (remaining time.Duration, ok bool) {
	state, err := s.read()
	if err != nil {
		return 0, true
	}
	ms, err := strconv.ParseInt(state[Key], 10, 64)
	if err != nil {
		return 0, true
	}
	elapsed := now.Sub(time.UnixMilli(ms))
	if elapsed < 0 || elapsed >= s.window {
		return 0, true
	}
	return s.window - elapsed, false
}

// Mark records now as the last submission, keeping other entries intact.
func (s *Store) Mark(now time.Time) error {
	state, err := s.read()
	if err != nil {
		state = map[string]string{}
	}
	state[Key] = strconv.FormatInt(now.UnixMilli(), 10)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}
