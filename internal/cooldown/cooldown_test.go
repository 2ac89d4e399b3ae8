package cooldown

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheckAndMark(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "state.json")
	s := New(p, time.Minute)
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	_, ok := s.Check(now)
	require.True(t, ok, "no state means no cooldown")

	require.NoError(t, s.Mark(now))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Contains(t, string(b), Key)

	left, ok := s.Check(now.Add(20 * time.Second))
	require.False(t, ok)
	require.Equal(t, 40*time.Second, left)

	_, ok = s.Check(now.Add(time.Minute))
	require.True(t, ok)
}

func TestMarkKeepsOtherEntries(t *testing.T) {
	p := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"theme":"dark"}`), 0o600))

	s := New(p, time.Minute)
	require.NoError(t, s.Mark(time.Now()))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Contains(t, string(b), `"theme": "dark"`)
}

func TestCheckIgnoresGarbage(t *testing.T) {
	p := filepath.Join(t.TempDir(), "state.json")
	s := New(p, time.Minute)

	require.NoError(t, os.WriteFile(p, []byte(`not json`), 0o600))
	_, ok := s.Check(time.Now())
	require.True(t, ok)

	require.NoError(t, os.WriteFile(p, []byte(`{"`+Key+`":"yesterday"}`), 0o600))
	_, ok = s.Check(time.Now())
	require.True(t, ok)

	require.NoError(t, s.Mark(time.Now()))
	_, ok = s.Check(time.Now())
	require.False(t, ok)
}

func TestDirHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	require.Equal(t, filepath.Join("/tmp/xdg", "sorryboard"), Dir())
	require.Equal(t, filepath.Join("/tmp/xdg", "sorryboard", "state.json"), New("", time.Minute).path)
}
