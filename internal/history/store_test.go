package history

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/berrythewa/cliplog/internal/storage"
	"github.com/berrythewa/cliplog/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func newTestStore(t *testing.T, opts Options) (*Store, *storage.BoltStorage) {
	t.Helper()
	st, err := storage.NewBoltStorage(storage.StorageConfig{
		DBPath: filepath.Join(t.TempDir(), "history.db"),
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	return New(st, opts), st
}

func mustAppend(t *testing.T, s *Store, kind types.Kind, payload string) string {
	t.Helper()
	id, err := s.Append(kind, payload)
	require.NoError(t, err)
	return id
}

func TestAppendNewestFirst(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	first := mustAppend(t, s, types.KindText, "one")
	second := mustAppend(t, s, types.KindImage, "data:image/png;base64,AAAA")

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second, entries[0].ID)
	assert.Equal(t, first, entries[1].ID)
	assert.Equal(t, types.KindImage, entries[0].Kind)
	assert.Empty(t, entries[0].Text)
	assert.Empty(t, entries[1].ImageData)
}

func TestAppendDedupAgainstHead(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	id := mustAppend(t, s, types.KindText, "P")
	again, err := s.Append(types.KindText, "P")
	require.NoError(t, err)
	assert.Empty(t, again)

	entries, err := s.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
}

func TestAppendSamePayloadDifferentKind(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	mustAppend(t, s, types.KindText, "same")
	id, err := s.Append(types.KindImage, "same")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestDedupOnlyChecksHead(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	mustAppend(t, s, types.KindText, "a")
	mustAppend(t, s, types.KindText, "b")
	assert.NotEmpty(t, mustAppend(t, s, types.KindText, "a"))

	entries, err := s.List()
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestCapEvictsOldest(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	for i := 0; i < 150; i++ {
		mustAppend(t, s, types.KindText, fmt.Sprintf("entry-%d", i))

		entries, err := s.List()
		require.NoError(t, err)
		require.LessOrEqual(t, len(entries), DefaultMaxEntries)
	}

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, DefaultMaxEntries)
	assert.Equal(t, "entry-149", entries[0].Text)
	assert.Equal(t, "entry-50", entries[len(entries)-1].Text)
}

func TestCustomCap(t *testing.T) {
	s, _ := newTestStore(t, Options{MaxEntries: 3})
	for i := 0; i < 5; i++ {
		mustAppend(t, s, types.KindText, fmt.Sprint(i))
	}
	entries, err := s.List()
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, "4", entries[0].Text)
}

func TestAppendRejectsInvalid(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	_, err := s.Append(types.KindText, "")
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = s.Append(types.Kind("file"), "x")
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestAppendSetsTimestamps(t *testing.T) {
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
	s, _ := newTestStore(t, Options{Now: func() time.Time { return fixed }})

	id := mustAppend(t, s, types.KindText, "x")
	e, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, fixed.UnixMilli(), e.CreatedAt)
	assert.Equal(t, "2024-05-06 07:08:09", e.DisplayTime)
	assert.Regexp(t, fmt.Sprintf(`^%d-[0-9a-f]{12}$`, fixed.UnixMilli()), e.ID)
}

func TestDistinctIDs(t *testing.T) {
	fixed := time.Now()
	s, _ := newTestStore(t, Options{MaxEntries: 1000, Now: func() time.Time { return fixed }})

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := mustAppend(t, s, types.KindText, fmt.Sprint(i))
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 1000)
}

func TestDeletePreservesOrder(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	a := mustAppend(t, s, types.KindText, "a")
	b := mustAppend(t, s, types.KindText, "b")
	c := mustAppend(t, s, types.KindText, "c")

	require.NoError(t, s.Delete(b))

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, c, entries[0].ID)
	assert.Equal(t, a, entries[1].ID)

	require.NoError(t, s.Delete("missing"))
	again, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, entries, again)
}

func TestDeleteKeepsMarkers(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	id := mustAppend(t, s, types.KindText, "a")
	require.NoError(t, s.Delete(id))

	m, err := s.Markers()
	require.NoError(t, err)
	assert.Equal(t, "a", m.Text)
}

func TestGetNotFound(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClearResetsMarkers(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	mustAppend(t, s, types.KindText, "seen")
	mustAppend(t, s, types.KindImage, "img")

	m, err := s.Markers()
	require.NoError(t, err)
	assert.Equal(t, types.LastSeen{Text: "seen", Image: "img"}, m)

	require.NoError(t, s.Clear())

	entries, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, entries)

	m, err = s.Markers()
	require.NoError(t, err)
	assert.Equal(t, types.LastSeen{}, m)

	assert.NotEmpty(t, mustAppend(t, s, types.KindImage, "img"))
	assert.NotEmpty(t, mustAppend(t, s, types.KindText, "seen"))
}

func TestLastSeenFallsBackToList(t *testing.T) {
	s, st := newTestStore(t, Options{})

	mustAppend(t, s, types.KindImage, "img")
	mustAppend(t, s, types.KindText, "t")

	// Drop the markers to simulate state written without them
	require.NoError(t, st.Update(func(state *storage.State) error {
		state.LastContent = ""
		state.LastImageData = ""
		return nil
	}))

	seen, err := s.LastSeen()
	require.NoError(t, err)
	assert.Equal(t, types.LastSeen{Text: "t", Image: "img"}, seen)
}

func TestSubscribeEvents(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	events, cancel := s.Subscribe()
	defer cancel()

	id := mustAppend(t, s, types.KindText, "x")
	_, err := s.Append(types.KindText, "x") // dedup, no event
	require.NoError(t, err)
	require.NoError(t, s.Delete("absent")) // no-op, no event
	require.NoError(t, s.Delete(id))
	require.NoError(t, s.Clear())

	var got []Event
	for i := 0; i < 3; i++ {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(time.Second):
			t.Fatalf("expected event %d", i)
		}
	}

	assert.Equal(t, EventAppended, got[0].Type)
	assert.Equal(t, id, got[0].ID)
	require.NotNil(t, got[0].Entry)
	assert.Equal(t, "x", got[0].Entry.Text)
	assert.Equal(t, Event{Type: EventDeleted, ID: id}, got[1])
	assert.Equal(t, Event{Type: EventCleared}, got[2])

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s, _ := newTestStore(t, Options{Logger: zap.New(core), MaxEntries: 1000})
	_, cancel := s.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		mustAppend(t, s, types.KindText, fmt.Sprint(i))
	}
	assert.Equal(t, 5, logs.FilterMessage("Dropped history event for slow subscriber").Len())
}

func TestCancelClosesChannel(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	events, cancel := s.Subscribe()
	cancel()
	cancel()

	_, ok := <-events
	assert.False(t, ok)
	mustAppend(t, s, types.KindText, "after cancel")
}

type failingStorage struct {
	storage.Storage
	err error
}

func (f *failingStorage) Load() (*storage.State, error) {
	return nil, f.err
}

func (f *failingStorage) Update(func(*storage.State) error) error {
	return f.err
}

func TestPersistenceFailureSurfaces(t *testing.T) {
	disk := errors.New("disk full")
	core, logs := observer.New(zapcore.ErrorLevel)
	s := New(&failingStorage{err: disk}, Options{Logger: zap.New(core)})

	_, err := s.Append(types.KindText, "x")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, disk)
	assert.Equal(t, 1, logs.Len())

	assert.ErrorIs(t, s.Delete("x"), ErrPersistence)
	assert.ErrorIs(t, s.Clear(), ErrPersistence)

	_, err = s.List()
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestHistorySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	st, err := storage.NewBoltStorage(storage.StorageConfig{DBPath: path})
	require.NoError(t, err)
	s := New(st, Options{})
	id := mustAppend(t, s, types.KindText, "persisted")
	require.NoError(t, st.Close())

	st, err = storage.NewBoltStorage(storage.StorageConfig{DBPath: path})
	require.NoError(t, err)
	defer st.Close()
	s = New(st, Options{})

	e, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "persisted", e.Text)

	m, err := s.Markers()
	require.NoError(t, err)
	assert.Equal(t, "persisted", m.Text)
}
