package journal

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/solescrow/internal/domain"
)

func TestWALStore_SaveAndRead(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	offer := solana.NewWallet().PublicKey()
	pending, err := store.Save(domain.JournalEntry{
		Action:  domain.OfferActionMake,
		Status:  domain.JournalStatusPending,
		Offer:   offer,
		OfferID: 42,
		AmountA: 100,
		AmountB: 200,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, pending.ID)
	assert.False(t, pending.Time.IsZero())
	assert.Equal(t, uint64(1), store.CurrentIndex())

	confirmed := pending
	confirmed.Status = domain.JournalStatusConfirmed
	confirmed.Signature = "sig"
	_, err = store.Save(confirmed)
	require.NoError(t, err)

	records, err := store.EntriesAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint64(1), records[0].Index)
	assert.Equal(t, domain.JournalStatusPending, records[0].Entry.Status)
	assert.Equal(t, offer, records[0].Entry.Offer)
	assert.Equal(t, domain.OfferID(42), records[0].Entry.OfferID)
	assert.Equal(t, domain.JournalStatusConfirmed, records[1].Entry.Status)

	after, err := store.EntriesAfter(1)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, uint64(2), after[0].Index)

	none, err := store.EntriesAfter(2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWALStore_Latest(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	first, err := store.Save(domain.JournalEntry{Action: domain.OfferActionMake, Status: domain.JournalStatusPending})
	require.NoError(t, err)
	second, err := store.Save(domain.JournalEntry{Action: domain.OfferActionTake, Status: domain.JournalStatusPending})
	require.NoError(t, err)

	first.Status = domain.JournalStatusFailed
	first.Error = "boom"
	_, err = store.Save(first)
	require.NoError(t, err)

	latest, err := store.Latest()
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, first.ID, latest[0].ID)
	assert.Equal(t, domain.JournalStatusFailed, latest[0].Status)
	assert.Equal(t, second.ID, latest[1].ID)
	assert.Equal(t, domain.JournalStatusPending, latest[1].Status)
}

func TestWALStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewWALStore(dir)
	require.NoError(t, err)
	_, err = store.Save(domain.JournalEntry{Action: domain.OfferActionMake, Status: domain.JournalStatusNotSent})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.EntriesAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.JournalStatusNotSent, records[0].Entry.Status)
}

func TestWALStore_Validation(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Save(domain.JournalEntry{})
	require.Error(t, err)

	var nilStore *WALStore
	_, err = nilStore.Save(domain.JournalEntry{Action: domain.OfferActionMake})
	require.Error(t, err)
	assert.Zero(t, nilStore.CurrentIndex())
}
