package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Bytekeeper/xdccmon/internal/domain"
)

// Bucket names
var (
	bucketSearches  = []byte("searches")
	bucketCompleted = []byte("completed")
)

const (
	maxSearchHistory    = 50
	maxCompletedHistory = 200
)

// HistoryStore keeps past search queries and finished transfers across
// sessions, backed by BoltDB. With an empty path it runs memory-only and
// nothing survives the process.
type HistoryStore struct {
	db *bolt.DB

	// Memory-only fallback state
	mu        sync.Mutex
	searches  []string
	completed []domain.TransferRecord
}

func NewHistoryStore(path string) (*HistoryStore, error) {
	if path == "" {
		// Memory-only mode (no persistence)
		return &HistoryStore{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketSearches, bucketCompleted} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &HistoryStore{db: db}, nil
}

func (s *HistoryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Search queries ===

// RecordSearch stores one submitted query. Resubmitting a known query
// moves it to the front instead of duplicating it.
func (s *HistoryStore) RecordSearch(query string) error {
	if query == "" {
		return nil
	}

	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.searches = prependDedup(s.searches, query, maxSearchHistory)
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSearches)

		// Drop any earlier entry for the same query
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if string(v) == query {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
		}

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(seq), []byte(query)); err != nil {
			return err
		}

		return pruneOldest(b, maxSearchHistory)
	})
}

// RecentSearches returns past queries, newest first, deduplicated.
func (s *HistoryStore) RecentSearches(limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		n := min(limit, len(s.searches))
		out := make([]string, n)
		copy(out, s.searches[:n])
		return out, nil
	}

	var queries []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketSearches).Cursor()
		for k, v := c.Last(); k != nil && len(queries) < limit; k, v = c.Prev() {
			queries = append(queries, string(v))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return queries, nil
}

// === Completed transfers ===

// RecordCompleted stores a transfer that left the daemon's active set.
func (s *HistoryStore) RecordCompleted(rec domain.TransferRecord) error {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.completed = append([]domain.TransferRecord{rec}, s.completed...)
		if len(s.completed) > maxCompletedHistory {
			s.completed = s.completed[:maxCompletedHistory]
		}
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCompleted)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(seq), data); err != nil {
			return err
		}
		return pruneOldest(b, maxCompletedHistory)
	})
}

// RecentCompleted returns finished transfers, newest first.
func (s *HistoryStore) RecentCompleted(limit int) ([]domain.TransferRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		n := min(limit, len(s.completed))
		out := make([]domain.TransferRecord, n)
		copy(out, s.completed[:n])
		return out, nil
	}

	var records []domain.TransferRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketCompleted).Cursor()
		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var rec domain.TransferRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip entries written by older versions
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// === Helpers ===

// seqKey encodes a bucket sequence number so keys sort chronologically.
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// pruneOldest deletes entries from the front until the bucket holds at
// most max of them.
func pruneOldest(b *bolt.Bucket, max int) error {
	count := 0
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		count++
	}
	excess := count - max
	if excess <= 0 {
		return nil
	}
	for k, _ := c.First(); k != nil && excess > 0; k, _ = c.Next() {
		if err := b.Delete(k); err != nil {
			return err
		}
		excess--
	}
	return nil
}

func prependDedup(list []string, entry string, max int) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, entry)
	for _, q := range list {
		if q != entry {
			out = append(out, q)
		}
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}
