// Package journal keeps a local write-ahead log of make/take offer submissions.
package journal

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/solescrow/internal/domain"
	"github.com/vadiminshakov/solescrow/internal/events"
)

const (
	DefaultDir     = "./wal/journal"
	segmentLimit   = 500
	maxSegments    = 20
	entryKeyPrefix = "offer_"
)

// WALStore persists journal entries in a WAL. An entry is appended once per
// status change; the latest record for an ID is its current state.
type WALStore struct {
	wal    *gowal.Wal
	mu     sync.RWMutex
	events *events.JournalBroadcaster
}

// NewWALStore initializes a WAL-backed journal under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Broadcast publishes every saved record to b.
func (s *WALStore) Broadcast(b *events.JournalBroadcaster) {
	s.mu.Lock()
	s.events = b
	s.mu.Unlock()
}

// Save appends entry and returns it with ID and time filled in.
func (s *WALStore) Save(entry domain.JournalEntry) (domain.JournalEntry, error) {
	if s == nil || s.wal == nil {
		return entry, errors.New("journal store is not initialized")
	}
	if entry.Action == "" {
		return entry, fmt.Errorf("journal entry action is required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return entry, errors.Wrap(err, "marshal journal entry")
	}

	key := entryKeyPrefix + string(entry.Action) + "_" + entry.ID

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return entry, errors.Wrap(err, "write journal entry")
	}
	s.events.Publish(domain.JournalRecord{Index: nextIndex, Entry: entry})

	return entry, nil
}

// EntriesAfter returns all entries written after the provided WAL index.
func (s *WALStore) EntriesAfter(index uint64) ([]domain.JournalRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("journal store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.JournalRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, entryKeyPrefix) {
			continue
		}
		var entry domain.JournalEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, errors.Wrap(err, "decode journal entry")
		}
		records = append(records, domain.JournalRecord{Index: idx, Entry: entry})
	}

	return records, nil
}

// Latest folds the log into the current state of every entry, oldest first.
func (s *WALStore) Latest() ([]domain.JournalEntry, error) {
	records, err := s.EntriesAfter(0)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0, len(records))
	byID := make(map[string]domain.JournalEntry, len(records))
	for _, r := range records {
		if _, seen := byID[r.Entry.ID]; !seen {
			order = append(order, r.Entry.ID)
		}
		byID[r.Entry.ID] = r.Entry
	}

	entries := make([]domain.JournalEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, byID[id])
	}
	return entries, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("journal store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
