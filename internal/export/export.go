// Package export saves history entries to files.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/berrythewa/cliplog/internal/clipboard"
	"github.com/berrythewa/cliplog/internal/types"
)

// ErrUserAction wraps any failure to save an entry
var ErrUserAction = errors.New("export failed")

// FileName returns clipboard_<createdAt>.txt or .png
func FileName(entry *types.HistoryEntry) string {
	ext := ".txt"
	if entry.Kind == types.KindImage {
		ext = ".png"
	}
	return fmt.Sprintf("clipboard_%d%s", entry.CreatedAt, ext)
}

// Content returns the bytes that Save writes for entry
func Content(entry *types.HistoryEntry) ([]byte, error) {
	switch entry.Kind {
	case types.KindText:
		return []byte(entry.Text), nil
	case types.KindImage:
		_, data, err := clipboard.DecodeDataURL(entry.ImageData)
		if err != nil {
			return nil, err
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown entry kind %q", entry.Kind)
	}
}

// Save writes entry into dir and returns the file path. The file is written
// to a temp file in dir and renamed into place.
func Save(entry *types.HistoryEntry, dir string) (string, error) {
	if entry == nil {
		return "", fmt.Errorf("%w: no entry", ErrUserAction)
	}

	data, err := Content(entry)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUserAction, err)
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUserAction, err)
	}

	// Sweep errors are ignored: a stale temp file that cannot be removed
	// must not block this save, and the next save retries it.
	CleanupTemp(dir)

	path := filepath.Join(dir, FileName(entry))
	if err := writeAtomic(path, data); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUserAction, err)
	}
	return path, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".clipboard_*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// staleTempAge keeps CleanupTemp away from files another Save is still writing
const staleTempAge = time.Minute

// CleanupTemp removes temp files left in dir by interrupted saves
func CleanupTemp(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(dir, ".clipboard_*.tmp"))
	if err != nil {
		return fmt.Errorf("failed to glob temp files: %w", err)
	}

	var errs []error
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil || time.Since(info.ModTime()) < staleTempAge {
			continue
		}
		if err := os.Remove(file); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", file, err))
		}
	}
	return errors.Join(errs...)
}
