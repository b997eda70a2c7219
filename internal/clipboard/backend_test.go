package clipboard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubBackends(t *testing.T, native, text Backend, nerr, terr error) {
	t.Helper()
	origNative, origText := newNativeBackend, newTextBackend
	t.Cleanup(func() {
		newNativeBackend, newTextBackend = origNative, origText
	})
	newNativeBackend = func() (Backend, error) { return native, nerr }
	newTextBackend = func() (Backend, error) { return text, terr }
}

func TestNewBackendsAuto(t *testing.T) {
	native := &fakeBackend{name: "native"}
	text := &fakeBackend{name: "text"}

	stubBackends(t, native, text, nil, nil)
	p, f, err := NewBackends(ModeAuto, nil)
	require.NoError(t, err)
	assert.Same(t, native, p)
	assert.Same(t, text, f)

	stubBackends(t, nil, text, errors.New("no display"), nil)
	p, f, err = NewBackends(ModeAuto, nil)
	require.NoError(t, err)
	assert.Same(t, text, p)
	assert.Nil(t, f)

	stubBackends(t, nil, nil, errors.New("no display"), errors.New("no xclip"))
	_, _, err = NewBackends(ModeAuto, nil)
	assert.ErrorContains(t, err, "no display")
	assert.ErrorContains(t, err, "no xclip")
}

func TestNewBackendsExplicit(t *testing.T) {
	native := &fakeBackend{name: "native"}
	text := &fakeBackend{name: "text"}
	stubBackends(t, native, text, nil, nil)

	p, f, err := NewBackends(ModeNative, nil)
	require.NoError(t, err)
	assert.Same(t, native, p)
	assert.Nil(t, f)

	p, _, err = NewBackends(ModeText, nil)
	require.NoError(t, err)
	assert.Same(t, text, p)

	_, _, err = NewBackends("x11", nil)
	assert.Error(t, err)
}

func TestDataURLRoundTrip(t *testing.T) {
	url := EncodePNG(pngBytes)
	assert.Contains(t, url, "data:image/png;base64,")

	mediaType, data, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)
	assert.Equal(t, pngBytes, data)
}

func TestDecodeDataURLErrors(t *testing.T) {
	for _, in := range []string{
		"hello",
		"data:image/png;base64",
		"data:image/png,rawbytes",
		"data:image/png;base64,!!!",
	} {
		_, _, err := DecodeDataURL(in)
		assert.Error(t, err, in)
	}
}
