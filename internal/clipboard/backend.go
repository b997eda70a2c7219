// Package clipboard wraps the platform clipboard: backends, the host
// goroutine that owns them, the Accessor used by callers and the Poller.
package clipboard

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrTransientRead means the clipboard could not be read this time
	ErrTransientRead = errors.New("clipboard read failed")
	// ErrHostUnavailable means the host goroutine is gone or unresponsive
	ErrHostUnavailable = errors.New("clipboard host unavailable")
	// ErrUserAction wraps failures of user-triggered writes
	ErrUserAction = errors.New("clipboard action failed")
	// ErrUnsupported is returned by backends for formats they cannot handle
	ErrUnsupported = errors.New("operation not supported by backend")
)

// Backend modes
const (
	ModeAuto   = "auto"
	ModeNative = "native"
	ModeText   = "text"
)

// Backend is a platform clipboard implementation. Reads return empty values
// when the clipboard holds nothing of that format.
type Backend interface {
	Name() string
	ReadText() (string, error)
	// ReadImage returns PNG bytes, or nil when there is no image
	ReadImage() ([]byte, error)
	WriteText(text string) error
	WriteImage(png []byte) error
}

// Overridable in tests
var (
	newNativeBackend = NewNativeBackend
	newTextBackend   = NewTextBackend
)

// NewBackends selects the primary and fallback backends for mode.
// The fallback may be nil.
func NewBackends(mode string, logger *zap.Logger) (Backend, Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch mode {
	case ModeNative:
		native, err := newNativeBackend()
		if err != nil {
			return nil, nil, err
		}
		return native, nil, nil

	case ModeText:
		text, err := newTextBackend()
		if err != nil {
			return nil, nil, err
		}
		return text, nil, nil

	case ModeAuto, "":
		native, nerr := newNativeBackend()
		text, terr := newTextBackend()
		switch {
		case nerr == nil && terr == nil:
			return native, text, nil
		case nerr == nil:
			logger.Debug("Text fallback unavailable", zap.Error(terr))
			return native, nil, nil
		case terr == nil:
			logger.Warn("Native clipboard unavailable, images will not be captured", zap.Error(nerr))
			return text, nil, nil
		default:
			return nil, nil, fmt.Errorf("no clipboard backend available: %w", errors.Join(nerr, terr))
		}

	default:
		return nil, nil, fmt.Errorf("unknown clipboard backend %q", mode)
	}
}
