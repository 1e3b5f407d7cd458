package events

import (
	"sync"

	"github.com/vadiminshakov/solescrow/internal/domain"
)

// JournalBroadcaster fans out freshly journaled records to all subscribers via
// buffered channels.
type JournalBroadcaster struct {
	mu     sync.RWMutex
	subs   map[chan domain.JournalRecord]struct{}
	buffer int
}

// NewJournalBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewJournalBroadcaster(buffer int) *JournalBroadcaster {
	if buffer < 1 {
		buffer = 64
	}
	return &JournalBroadcaster{
		subs:   make(map[chan domain.JournalRecord]struct{}),
		buffer: buffer,
	}
}

// Publish sends the record to all subscribers, dropping if a reader is slow.
// Subscribers re-read the journal by index, so a dropped record is not lost.
func (b *JournalBroadcaster) Publish(r domain.JournalRecord) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- r:
		default:
		}
	}
}

// Subscribe returns a channel that receives records until Unsubscribe is called.
func (b *JournalBroadcaster) Subscribe() chan domain.JournalRecord {
	ch := make(chan domain.JournalRecord, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *JournalBroadcaster) Unsubscribe(ch chan domain.JournalRecord) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers returns the number of live subscriptions.
func (b *JournalBroadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
