package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/berrythewa/cliplog/internal/clipboard"
	"github.com/berrythewa/cliplog/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveText(t *testing.T) {
	dir := t.TempDir()
	entry := &types.HistoryEntry{ID: "1", Kind: types.KindText, Text: "foo", CreatedAt: 1700000000123}

	path, err := Save(entry, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clipboard_1700000000123.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "foo", string(data))
}

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 13}
	entry := &types.HistoryEntry{ID: "2", Kind: types.KindImage, ImageData: clipboard.EncodePNG(png), CreatedAt: 42}

	path, err := Save(entry, dir)
	require.NoError(t, err)
	assert.Equal(t, "clipboard_42.png", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, png, data)
}

func TestSaveCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	_, err := Save(&types.HistoryEntry{Kind: types.KindText, Text: "x", CreatedAt: 1}, dir)
	require.NoError(t, err)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".clipboard_*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestSaveFailures(t *testing.T) {
	_, err := Save(nil, t.TempDir())
	assert.ErrorIs(t, err, ErrUserAction)

	_, err = Save(&types.HistoryEntry{Kind: types.KindImage, ImageData: "garbage"}, t.TempDir())
	assert.ErrorIs(t, err, ErrUserAction)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	_, err = Save(&types.HistoryEntry{Kind: types.KindText, Text: "x"}, filepath.Join(blocker, "sub"))
	assert.ErrorIs(t, err, ErrUserAction)
}

func TestCleanupTemp(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, ".clipboard_1.tmp")
	fresh := filepath.Join(dir, ".clipboard_2.tmp")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{stale, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	old := time.Now().Add(-2 * staleTempAge)
	require.NoError(t, os.Chtimes(stale, old, old))

	require.NoError(t, CleanupTemp(dir))

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)

	assert.NoError(t, CleanupTemp(filepath.Join(dir, "missing")))
}

func TestSaveIgnoresStuckTemp(t *testing.T) {
	dir := t.TempDir()
	stuck := filepath.Join(dir, ".clipboard_stuck.tmp")
	require.NoError(t, os.Mkdir(stuck, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stuck, "inner"), []byte("x"), 0o644))
	old := time.Now().Add(-2 * staleTempAge)
	require.NoError(t, os.Chtimes(stuck, old, old))

	require.Error(t, CleanupTemp(dir))

	entry := &types.HistoryEntry{ID: "1", Kind: types.KindText, Text: "kept", CreatedAt: 1700000000999}
	path, err := Save(entry, dir)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))
	assert.DirExists(t, stuck)
}
