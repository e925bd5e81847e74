package scan

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

const (
	historyBucket = "history"
	historyKey    = "quickscan_history"
)

// Store defines the interface for scan history persistence. The history is an
// ordered list, newest saved scan first; every mutation rewrites the full list
// so persisted and in-memory state never diverge.
type Store interface {
	// List returns a snapshot of all records, newest first
	List() []ScanRecord

	// Get retrieves a record by ID
	Get(id string) (ScanRecord, bool)

	// Insert prepends a record and persists the list
	Insert(record ScanRecord) error

	// Delete removes a record by ID and persists the list. Deleting an
	// absent ID is a no-op.
	Delete(id string) error

	// Close closes the store
	Close() error
}

// BoltStore implements Store on a BoltDB file. The whole history lives under a
// single key as one JSON array, which preserves insertion order exactly.
type BoltStore struct {
	db *bbolt.DB

	mu      sync.Mutex
	records []ScanRecord
}

// NewBoltStore opens the database and loads the history. Missing or malformed
// persisted data is not an error: the store starts empty and the condition is
// logged, matching a fresh install.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(historyBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	s := &BoltStore{db: db}
	s.records = s.load()

	return s, nil
}

// load reads the persisted history, falling back to an empty list
func (s *BoltStore) load() []ScanRecord {
	var records []ScanRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(historyBucket)).Get([]byte(historyKey))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &records)
	})
	if err != nil {
		slog.Warn("Failed to load scan history, starting empty", "error", err)
		return []ScanRecord{}
	}
	if records == nil {
		records = []ScanRecord{}
	}
	return records
}

// persistLocked rewrites the full serialized list. Callers hold s.mu.
func (s *BoltStore) persistLocked() error {
	data, err := json.Marshal(s.records)
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(historyBucket)).Put([]byte(historyKey), data)
	})
}

// List returns a snapshot of all records, newest first
func (s *BoltStore) List() []ScanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScanRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Get retrieves a record by ID
func (s *BoltStore) Get(id string) (ScanRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return ScanRecord{}, false
}

// Insert prepends a record and persists the list. On a write failure the
// in-memory prepend is rolled back so memory and disk stay reconciled, and the
// error is returned to the caller instead of losing the mutation silently.
func (s *BoltStore) Insert(record ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append([]ScanRecord{record}, s.records...)
	if err := s.persistLocked(); err != nil {
		s.records = s.records[1:]
		return fmt.Errorf("persisting history: %w", err)
	}
	return nil
}

// Delete removes a record by ID and persists the list
func (s *BoltStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, r := range s.records {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	removed := s.records[idx]
	s.records = append(s.records[:idx:idx], s.records[idx+1:]...)
	if err := s.persistLocked(); err != nil {
		s.records = append(s.records[:idx:idx], append([]ScanRecord{removed}, s.records[idx:]...)...)
		return fmt.Errorf("persisting history: %w", err)
	}
	return nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}
