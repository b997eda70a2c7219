package clipboard

import (
	"errors"
	"fmt"

	atottoClip "github.com/atotto/clipboard"
)

// TextBackend uses atotto/clipboard, which shells out to xclip, xsel,
// wl-clipboard or pbcopy. It only supports text.
type TextBackend struct{}

// NewTextBackend returns a text-only backend if a helper is available
func NewTextBackend() (Backend, error) {
	if atottoClip.Unsupported {
		return nil, errors.New("no text clipboard utility found")
	}
	return &TextBackend{}, nil
}

func (b *TextBackend) Name() string { return "text" }

func (b *TextBackend) ReadText() (string, error) {
	text, err := atottoClip.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return text, nil
}

func (b *TextBackend) ReadImage() ([]byte, error) {
	return nil, ErrUnsupported
}

func (b *TextBackend) WriteText(text string) error {
	return atottoClip.WriteAll(text)
}

func (b *TextBackend) WriteImage([]byte) error {
	return fmt.Errorf("image: %w", ErrUnsupported)
}
