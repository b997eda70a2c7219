// Package history owns the clipboard history list: dedup against the head,
// bounded retention, persistence and change notifications.
package history

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/berrythewa/cliplog/internal/storage"
	"github.com/berrythewa/cliplog/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMaxEntries = 100
	DefaultTimeFormat = "2006-01-02 15:04:05"

	subscriberBuffer = 32
)

var (
	// ErrPersistence wraps any failure of the underlying storage
	ErrPersistence = errors.New("history persistence failed")
	// ErrNotFound is returned by Get for an unknown id
	ErrNotFound = errors.New("history entry not found")
	// ErrInvalidEntry rejects empty payloads and unknown kinds
	ErrInvalidEntry = errors.New("invalid history entry")
)

// EventType names a store mutation
type EventType string

const (
	EventAppended EventType = "appended"
	EventDeleted  EventType = "deleted"
	EventCleared  EventType = "cleared"
)

// Event is emitted once per effective mutation
type Event struct {
	Type  EventType           `json:"type"`
	ID    string              `json:"id,omitempty"`
	Entry *types.HistoryEntry `json:"entry,omitempty"`
}

// Options configures a Store
type Options struct {
	MaxEntries int
	TimeFormat string
	Logger     *zap.Logger
	Now        func() time.Time
}

// Store is the only writer of the history list
type Store struct {
	mu         sync.Mutex
	storage    storage.Storage
	maxEntries int
	timeFormat string
	now        func() time.Time
	logger     *zap.Logger

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// New creates a Store on top of st
func New(st storage.Storage, opts Options) *Store {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = DefaultTimeFormat
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Store{
		storage:    st,
		maxEntries: opts.MaxEntries,
		timeFormat: opts.TimeFormat,
		now:        opts.Now,
		logger:     opts.Logger,
		subs:       make(map[int]chan Event),
	}
}

// Append records payload unless the head already holds the same kind and
// payload. It returns the new id, or "" when the append was a dedup no-op.
func (s *Store) Append(kind types.Kind, payload string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, kind)
	}
	if payload == "" {
		return "", fmt.Errorf("%w: empty payload", ErrInvalidEntry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var added *types.HistoryEntry
	err := s.storage.Update(func(st *storage.State) error {
		if len(st.History) > 0 && st.History[0].Matches(kind, payload) {
			return nil
		}

		now := s.now()
		entry := &types.HistoryEntry{
			ID:          newID(now, st.History),
			Kind:        kind,
			CreatedAt:   now.UnixMilli(),
			DisplayTime: now.Local().Format(s.timeFormat),
		}
		if kind == types.KindImage {
			entry.ImageData = payload
			st.LastImageData = payload
		} else {
			entry.Text = payload
			st.LastContent = payload
		}

		st.History = append([]*types.HistoryEntry{entry}, st.History...)
		if len(st.History) > s.maxEntries {
			st.History = st.History[:s.maxEntries]
		}
		added = entry
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to persist history append", zap.String("kind", string(kind)), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if added == nil {
		s.logger.Debug("Skipped duplicate of head", zap.String("kind", string(kind)))
		return "", nil
	}

	s.logger.Debug("Appended history entry",
		zap.String("id", added.ID),
		zap.String("kind", string(kind)),
		zap.Int("size", len(payload)))

	cp := *added
	s.publish(Event{Type: EventAppended, ID: added.ID, Entry: &cp})
	return added.ID, nil
}

// List returns the persisted list, newest first
func (s *Store) List() ([]*types.HistoryEntry, error) {
	state, err := s.storage.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return state.History, nil
}

// Get returns the entry with the given id
func (s *Store) Get(id string) (*types.HistoryEntry, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes the entry with the given id. Deleting an absent id is a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	err := s.storage.Update(func(st *storage.State) error {
		kept := st.History[:0]
		for _, e := range st.History {
			if e.ID == id {
				removed = true
				continue
			}
			kept = append(kept, e)
		}
		st.History = kept
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to persist history delete", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if removed {
		s.logger.Debug("Deleted history entry", zap.String("id", id))
		s.publish(Event{Type: EventDeleted, ID: id})
	}
	return nil
}

// Clear empties the list and resets both last-content markers
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.storage.Update(func(st *storage.State) error {
		st.History = []*types.HistoryEntry{}
		st.LastContent = ""
		st.LastImageData = ""
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to persist history clear", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.logger.Info("Cleared clipboard history")
	s.publish(Event{Type: EventCleared})
	return nil
}

// Markers returns the persisted last-content markers
func (s *Store) Markers() (types.LastSeen, error) {
	state, err := s.storage.Load()
	if err != nil {
		return types.LastSeen{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return types.LastSeen{Text: state.LastContent, Image: state.LastImageData}, nil
}

// LastSeen reconstructs the poller's view from persisted state: the markers,
// falling back to the newest entry of each kind when a marker is missing.
func (s *Store) LastSeen() (types.LastSeen, error) {
	state, err := s.storage.Load()
	if err != nil {
		return types.LastSeen{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	seen := types.LastSeen{Text: state.LastContent, Image: state.LastImageData}
	for _, e := range state.History {
		if seen.Text != "" && seen.Image != "" {
			break
		}
		switch {
		case e.Kind == types.KindText && seen.Text == "":
			seen.Text = e.Text
		case e.Kind == types.KindImage && seen.Image == "":
			seen.Image = e.ImageData
		}
	}
	return seen, nil
}

// Stats reports on-disk statistics
func (s *Store) Stats() (storage.Stats, error) {
	return s.storage.Stats()
}

// Subscribe returns a channel of change events and a cancel func.
// A subscriber that falls behind loses events instead of blocking writers.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("Dropped history event for slow subscriber",
				zap.Int("subscriber", id),
				zap.String("event", string(ev.Type)))
		}
	}
}

// newID builds <millis>-<12 hex chars>, retrying on a collision with the
// current list.
func newID(now time.Time, existing []*types.HistoryEntry) string {
	taken := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		taken[e.ID] = struct{}{}
	}
	for {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		id := fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}
