package clipboard

import (
	"errors"
	"sync"
)

// fakeBackend is an in-memory clipboard
type fakeBackend struct {
	mu       sync.Mutex
	name     string
	text     string
	image    []byte
	readErr  error
	writeErr error
	noImages bool
	reads    int
	block    chan struct{}
}

func (f *fakeBackend) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeBackend) ReadText() (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return "", f.readErr
	}
	return f.text, nil
}

func (f *fakeBackend) ReadImage() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noImages {
		return nil, ErrUnsupported
	}
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.image, nil
}

func (f *fakeBackend) WriteText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.text = text
	f.image = nil
	return nil
}

func (f *fakeBackend) WriteImage(png []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noImages {
		return ErrUnsupported
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	f.image = png
	f.text = ""
	return nil
}

func (f *fakeBackend) set(text string, image []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
	f.image = image
}

func (f *fakeBackend) current() (string, []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, f.image
}

var errDenied = errors.New("clipboard access denied")
