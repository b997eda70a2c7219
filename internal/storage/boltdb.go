package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/berrythewa/cliplog/internal/types"
	"github.com/berrythewa/cliplog/pkg/compression"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	localBucket        = "local"
	defaultOpenTimeout = 1 * time.Second
)

// Keys inside the local bucket
const (
	KeyHistory       = "history"
	KeyLastContent   = "lastContent"
	KeyLastImageData = "lastImageData"
)

// ErrClosed is returned by operations on a closed storage
var ErrClosed = errors.New("storage closed")

// State is the full persisted record: the history list plus the last-content
// markers for each kind. An empty marker means absent.
type State struct {
	History       []*types.HistoryEntry
	LastContent   string
	LastImageData string
}

// Clone returns a copy whose History slice can be mutated independently
func (s *State) Clone() *State {
	out := &State{
		LastContent:   s.LastContent,
		LastImageData: s.LastImageData,
		History:       make([]*types.HistoryEntry, len(s.History)),
	}
	for i, e := range s.History {
		cp := *e
		out.History[i] = &cp
	}
	return out
}

// Stats describes what is on disk
type Stats struct {
	Path         string `json:"path"`
	Entries      int    `json:"entries"`
	HistoryBytes int    `json:"history_bytes"`
	Compressed   bool   `json:"compressed"`
	FileSize     int64  `json:"file_size"`
}

// Storage is a local key-value store with whole-value replace per key
type Storage interface {
	Load() (*State, error)
	// Update runs a read-modify-write of the state in a single transaction.
	// Returning an error from fn aborts without writing.
	Update(fn func(*State) error) error
	Stats() (Stats, error)
	Close() error
}

// BoltStorage implements Storage on a bbolt file
type BoltStorage struct {
	db                *bbolt.DB
	path              string
	compressThreshold int
	logger            *zap.Logger
}

// StorageConfig holds configuration for BoltStorage initialization
type StorageConfig struct {
	DBPath            string
	CompressThreshold int
	OpenTimeout       time.Duration
	ReadOnly          bool
	Logger            *zap.Logger
}

// NewBoltStorage opens (or creates) the database and ensures the bucket exists
func NewBoltStorage(config StorageConfig) (*BoltStorage, error) {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := config.OpenTimeout
	if timeout <= 0 {
		timeout = defaultOpenTimeout
	}

	threshold := config.CompressThreshold
	if threshold <= 0 {
		threshold = compression.DefaultThreshold
	}

	db, err := bbolt.Open(config.DBPath, 0600, &bbolt.Options{Timeout: timeout, ReadOnly: config.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	if !config.ReadOnly {
		err = db.Update(func(tx *bbolt.Tx) error {
			if _, err := tx.CreateBucketIfNotExists([]byte(localBucket)); err != nil {
				return fmt.Errorf("failed to create bucket: %w", err)
			}
			return nil
		})
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	logger.Debug("BoltStorage initialized",
		zap.String("db_path", config.DBPath),
		zap.Int("compress_threshold", threshold),
		zap.Bool("read_only", config.ReadOnly))

	return &BoltStorage{
		db:                db,
		path:              config.DBPath,
		compressThreshold: threshold,
		logger:            logger,
	}, nil
}

// Load reads the current state
func (s *BoltStorage) Load() (*State, error) {
	var state *State
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		state, err = s.readState(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Update implements Storage
func (s *BoltStorage) Update(fn func(*State) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		before, err := s.readState(tx)
		if err != nil {
			return err
		}

		after := before.Clone()
		if err := fn(after); err != nil {
			return err
		}

		b := tx.Bucket([]byte(localBucket))
		if b == nil {
			return fmt.Errorf("bucket %q missing", localBucket)
		}

		if !sameHistory(before.History, after.History) {
			if err := s.putHistory(b, after.History); err != nil {
				return err
			}
		}
		if before.LastContent != after.LastContent {
			if err := putMarker(b, KeyLastContent, after.LastContent); err != nil {
				return err
			}
		}
		if before.LastImageData != after.LastImageData {
			if err := putMarker(b, KeyLastImageData, after.LastImageData); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stats implements Storage
func (s *BoltStorage) Stats() (Stats, error) {
	st := Stats{Path: s.path}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(localBucket))
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(KeyHistory))
		st.HistoryBytes = len(raw)
		st.Compressed = compression.IsCompressed(raw)

		state, err := s.readState(tx)
		if err != nil {
			return err
		}
		st.Entries = len(state.History)
		return nil
	})
	if err != nil {
		return st, err
	}

	if info, err := os.Stat(s.path); err == nil {
		st.FileSize = info.Size()
	}
	return st, nil
}

// Close closes the database
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

// readState decodes the bucket. A missing bucket or key reads as empty.
func (s *BoltStorage) readState(tx *bbolt.Tx) (*State, error) {
	state := &State{History: []*types.HistoryEntry{}}

	b := tx.Bucket([]byte(localBucket))
	if b == nil {
		return state, nil
	}

	if raw := b.Get([]byte(KeyHistory)); len(raw) > 0 {
		data, err := compression.Decompress(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress history: %w", err)
		}
		if err := json.Unmarshal(data, &state.History); err != nil {
			return nil, fmt.Errorf("failed to decode history: %w", err)
		}
		if state.History == nil {
			state.History = []*types.HistoryEntry{}
		}
	}

	state.LastContent = string(b.Get([]byte(KeyLastContent)))
	state.LastImageData = string(b.Get([]byte(KeyLastImageData)))
	return state, nil
}

func (s *BoltStorage) putHistory(b *bbolt.Bucket, history []*types.HistoryEntry) error {
	if history == nil {
		history = []*types.HistoryEntry{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	stored, err := compression.MaybeCompress(data, s.compressThreshold)
	if err != nil {
		return fmt.Errorf("failed to compress history: %w", err)
	}

	if len(stored) != len(data) {
		s.logger.Debug("Stored compressed history",
			zap.Int("entries", len(history)),
			zap.Int("raw_bytes", len(data)),
			zap.Int("stored_bytes", len(stored)))
	}

	if err := b.Put([]byte(KeyHistory), stored); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

func putMarker(b *bbolt.Bucket, key, value string) error {
	if value == "" {
		if err := b.Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
		return nil
	}
	if err := b.Put([]byte(key), []byte(value)); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func sameHistory(a, b []*types.HistoryEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if *a[i] != *b[i] {
			return false
		}
	}
	return true
}
