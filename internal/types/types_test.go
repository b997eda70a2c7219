package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHistoryEntryPayload(t *testing.T) {
	text := &HistoryEntry{Kind: KindText, Text: "hello"}
	img := &HistoryEntry{Kind: KindImage, ImageData: "data:image/png;base64,AAAA"}

	assert.Equal(t, "hello", text.Payload())
	assert.Equal(t, "data:image/png;base64,AAAA", img.Payload())

	assert.True(t, text.Matches(KindText, "hello"))
	assert.False(t, text.Matches(KindImage, "hello"))
	assert.False(t, img.Matches(KindText, "data:image/png;base64,AAAA"))

	var missing *HistoryEntry
	assert.False(t, missing.Matches(KindText, ""))
}

func TestHistoryEntryCreated(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e := &HistoryEntry{CreatedAt: now.UnixMilli()}
	assert.True(t, e.Created().Equal(now))
}

func TestSnapshotPrimary(t *testing.T) {
	tests := []struct {
		name    string
		snap    Snapshot
		kind    Kind
		payload string
		ok      bool
	}{
		{"empty", Snapshot{}, "", "", false},
		{"text only", Snapshot{Text: "a"}, KindText, "a", true},
		{"image only", Snapshot{ImageData: "img"}, KindImage, "img", true},
		{"text wins", Snapshot{Text: "a", ImageData: "img"}, KindText, "a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, payload, ok := tt.snap.Primary()
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.payload, payload)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, !tt.ok, tt.snap.Empty())
		})
	}
}

func TestKindValid(t *testing.T) {
	assert.True(t, KindText.Valid())
	assert.True(t, KindImage.Valid())
	assert.False(t, Kind("file").Valid())
}
