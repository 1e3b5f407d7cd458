package offers

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/solescrow/internal/domain"
	"github.com/vadiminshakov/solescrow/internal/services/txbuilder"
)

type fakeBuilder struct {
	err       error
	makeCalls int
	takeCalls int
	lastTake  [4]solana.PublicKey
}

func (f *fakeBuilder) BuildMakeOffer(_ context.Context, mintA, mintB solana.PublicKey, amountA, amountB uint64) (*txbuilder.MakeOfferPlan, error) {
	f.makeCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &txbuilder.MakeOfferPlan{
		Offer: domain.Offer{
			ID:      9,
			Address: solana.NewWallet().PublicKey(),
			MintA:   mintA,
			MintB:   mintB,
			AmountA: amountA,
			AmountB: amountB,
		},
		Transaction: &solana.Transaction{},
	}, nil
}

func (f *fakeBuilder) BuildTakeOffer(_ context.Context, maker, offer, mintA, mintB solana.PublicKey) (*txbuilder.TakeOfferPlan, error) {
	f.takeCalls++
	f.lastTake = [4]solana.PublicKey{maker, offer, mintA, mintB}
	if f.err != nil {
		return nil, f.err
	}
	return &txbuilder.TakeOfferPlan{Transaction: &solana.Transaction{}}, nil
}

type fakeSubmitter struct {
	sub   *domain.Submission
	err   error
	calls int
}

func (f *fakeSubmitter) Submit(_ context.Context, _ *solana.Transaction) (*domain.Submission, error) {
	f.calls++
	return f.sub, f.err
}

type memJournal struct {
	entries []domain.JournalEntry
}

func (m *memJournal) Save(entry domain.JournalEntry) (domain.JournalEntry, error) {
	if entry.ID == "" {
		entry.ID = "entry-1"
	}
	m.entries = append(m.entries, entry)
	return entry, nil
}

type fakeOfferReader struct {
	offers map[solana.PublicKey]*domain.OfferAccount
}

func (f *fakeOfferReader) GetOffer(_ context.Context, address solana.PublicKey) (*domain.OfferAccount, error) {
	if acc, ok := f.offers[address]; ok {
		return acc, nil
	}
	return nil, domain.ErrOfferNotFound
}

func newTestService(t *testing.T, b *fakeBuilder, s *fakeSubmitter, r *fakeOfferReader, j *memJournal) *Service {
	t.Helper()
	if r == nil {
		r = &fakeOfferReader{}
	}
	var journal journalStore
	if j != nil {
		journal = j
	}
	svc, err := NewService(b, s, r, journal, solana.NewWallet().PublicKey(), nil)
	require.NoError(t, err)
	return svc
}

func TestMakeOffer_Confirmed(t *testing.T) {
	sig := solana.Signature{1, 2, 3}
	builder := &fakeBuilder{}
	submitter := &fakeSubmitter{sub: &domain.Submission{Signature: sig, Status: domain.SubmissionConfirmed, Slot: 5}}
	journal := &memJournal{}
	svc := newTestService(t, builder, submitter, nil, journal)

	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	res, err := svc.MakeOffer(context.Background(), mintA, mintB, 100, 200)
	require.NoError(t, err)

	assert.Equal(t, domain.OfferID(9), res.Offer.ID)
	assert.True(t, res.Submission.Sent())

	require.Len(t, journal.entries, 2)
	assert.Equal(t, domain.JournalStatusPending, journal.entries[0].Status)
	assert.Equal(t, domain.OfferActionMake, journal.entries[0].Action)
	assert.Equal(t, res.Offer.Address, journal.entries[0].Offer)
	assert.Equal(t, uint64(100), journal.entries[0].AmountA)
	assert.Equal(t, domain.JournalStatusConfirmed, journal.entries[1].Status)
	assert.Equal(t, journal.entries[0].ID, journal.entries[1].ID)
	assert.Equal(t, sig.String(), journal.entries[1].Signature)
}

func TestMakeOffer_BuildErrorSkipsSubmitAndJournal(t *testing.T) {
	builder := &fakeBuilder{err: domain.ErrStandardMismatch}
	submitter := &fakeSubmitter{}
	journal := &memJournal{}
	svc := newTestService(t, builder, submitter, nil, journal)

	_, err := svc.MakeOffer(context.Background(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 1, 1)
	require.ErrorIs(t, err, domain.ErrStandardMismatch)
	assert.Zero(t, submitter.calls)
	assert.Empty(t, journal.entries)
}

func TestMakeOffer_NotSent(t *testing.T) {
	submitter := &fakeSubmitter{sub: &domain.Submission{Status: domain.SubmissionNotSent}}
	journal := &memJournal{}
	svc := newTestService(t, &fakeBuilder{}, submitter, nil, journal)

	res, err := svc.MakeOffer(context.Background(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 1, 1)
	require.NoError(t, err)
	assert.False(t, res.Submission.Sent())
	require.Len(t, journal.entries, 2)
	assert.Equal(t, domain.JournalStatusNotSent, journal.entries[1].Status)
}

func TestTakeOffer_SubmitFailure(t *testing.T) {
	submitErr := errors.New("send transaction: node is behind")
	submitter := &fakeSubmitter{err: submitErr}
	journal := &memJournal{}
	svc := newTestService(t, &fakeBuilder{}, submitter, nil, journal)

	offer := solana.NewWallet().PublicKey()
	_, err := svc.TakeOffer(context.Background(), solana.NewWallet().PublicKey(), offer,
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	require.ErrorIs(t, err, submitErr)

	require.Len(t, journal.entries, 2)
	assert.Equal(t, domain.OfferActionTake, journal.entries[1].Action)
	assert.Equal(t, domain.JournalStatusFailed, journal.entries[1].Status)
	assert.Equal(t, offer, journal.entries[1].Offer)
	assert.Contains(t, journal.entries[1].Error, "node is behind")
}

func TestTakeOfferByAddress(t *testing.T) {
	offer := solana.NewWallet().PublicKey()
	acc := &domain.OfferAccount{
		Address: offer,
		Maker:   solana.NewWallet().PublicKey(),
		MintA:   solana.NewWallet().PublicKey(),
		MintB:   solana.NewWallet().PublicKey(),
	}
	builder := &fakeBuilder{}
	submitter := &fakeSubmitter{sub: &domain.Submission{Status: domain.SubmissionConfirmed}}
	reader := &fakeOfferReader{offers: map[solana.PublicKey]*domain.OfferAccount{offer: acc}}
	svc := newTestService(t, builder, submitter, reader, nil)

	res, err := svc.TakeOfferByAddress(context.Background(), offer)
	require.NoError(t, err)
	assert.Equal(t, acc.Maker, res.Maker)
	assert.Equal(t, [4]solana.PublicKey{acc.Maker, offer, acc.MintA, acc.MintB}, builder.lastTake)

	_, err = svc.TakeOfferByAddress(context.Background(), solana.NewWallet().PublicKey())
	require.ErrorIs(t, err, domain.ErrOfferNotFound)
	assert.Equal(t, 1, builder.takeCalls)
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(nil, &fakeSubmitter{}, &fakeOfferReader{}, nil, solana.PublicKey{}, nil)
	require.Error(t, err)
	_, err = NewService(&fakeBuilder{}, nil, &fakeOfferReader{}, nil, solana.PublicKey{}, nil)
	require.Error(t, err)
	_, err = NewService(&fakeBuilder{}, &fakeSubmitter{}, nil, nil, solana.PublicKey{}, nil)
	require.Error(t, err)
}
