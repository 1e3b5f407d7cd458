package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/solescrow/internal/domain"
)

func TestJournalBroadcaster_FanOut(t *testing.T) {
	b := NewJournalBroadcaster(4)
	first := b.Subscribe()
	second := b.Subscribe()
	assert.Equal(t, 2, b.Subscribers())

	rec := domain.JournalRecord{Index: 3, Entry: domain.JournalEntry{ID: "x", Status: domain.JournalStatusConfirmed}}
	b.Publish(rec)

	assert.Equal(t, rec, <-first)
	assert.Equal(t, rec, <-second)

	b.Unsubscribe(first)
	_, open := <-first
	assert.False(t, open)
	assert.Equal(t, 1, b.Subscribers())

	// double unsubscribe is a no-op
	b.Unsubscribe(first)
}

func TestJournalBroadcaster_DropsForSlowReader(t *testing.T) {
	b := NewJournalBroadcaster(1)
	ch := b.Subscribe()

	b.Publish(domain.JournalRecord{Index: 1})
	b.Publish(domain.JournalRecord{Index: 2})

	got := <-ch
	assert.Equal(t, uint64(1), got.Index)
	select {
	case r := <-ch:
		require.Failf(t, "unexpected record", "%+v", r)
	default:
	}
}

func TestJournalBroadcaster_NilPublish(t *testing.T) {
	var b *JournalBroadcaster
	assert.NotPanics(t, func() { b.Publish(domain.JournalRecord{}) })
}
