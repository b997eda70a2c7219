package clipboard

import (
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

var (
	nativeInitOnce sync.Once
	nativeInitErr  error
)

// NativeBackend uses golang.design/x/clipboard and supports text and PNG images
type NativeBackend struct{}

// NewNativeBackend initializes the platform clipboard. Init runs once per
// process; a failure (no display, no cgo) is sticky.
func NewNativeBackend() (Backend, error) {
	nativeInitOnce.Do(func() {
		nativeInitErr = clipboard.Init()
	})
	if nativeInitErr != nil {
		return nil, fmt.Errorf("native clipboard init: %w", nativeInitErr)
	}
	return &NativeBackend{}, nil
}

func (b *NativeBackend) Name() string { return "native" }

func (b *NativeBackend) ReadText() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (b *NativeBackend) ReadImage() ([]byte, error) {
	return clipboard.Read(clipboard.FmtImage), nil
}

func (b *NativeBackend) WriteText(text string) error {
	if clipboard.Write(clipboard.FmtText, []byte(text)) == nil {
		return fmt.Errorf("native clipboard rejected text")
	}
	return nil
}

func (b *NativeBackend) WriteImage(png []byte) error {
	if clipboard.Write(clipboard.FmtImage, png) == nil {
		return fmt.Errorf("native clipboard rejected image")
	}
	return nil
}
