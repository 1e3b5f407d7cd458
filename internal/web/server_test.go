package web

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/solescrow/internal/domain"
	"github.com/vadiminshakov/solescrow/internal/events"
	"github.com/vadiminshakov/solescrow/internal/services/offers"
)

type stubBalances struct {
	holdings []domain.TokenHolding
	err      error
	owner    *solana.PublicKey
}

func (s *stubBalances) Holdings(_ context.Context, owner *solana.PublicKey) ([]domain.TokenHolding, error) {
	s.owner = owner
	return s.holdings, s.err
}

type stubReader struct {
	offers map[solana.PublicKey]domain.OfferAccount
	maker  *solana.PublicKey
}

func (s *stubReader) GetOffer(_ context.Context, address solana.PublicKey) (*domain.OfferAccount, error) {
	if o, ok := s.offers[address]; ok {
		return &o, nil
	}
	return nil, domain.ErrOfferNotFound
}

func (s *stubReader) ListOffers(_ context.Context, maker *solana.PublicKey) ([]domain.OfferAccount, error) {
	s.maker = maker
	list := make([]domain.OfferAccount, 0, len(s.offers))
	for _, o := range s.offers {
		list = append(list, o)
	}
	return list, nil
}

type stubService struct {
	makeErr   error
	sub       *domain.Submission
	amounts   [2]uint64
	byAddress bool
	explicit  bool
}

func (s *stubService) MakeOffer(_ context.Context, mintA, mintB solana.PublicKey, amountA, amountB uint64) (*offers.MakeResult, error) {
	if s.makeErr != nil {
		return nil, s.makeErr
	}
	s.amounts = [2]uint64{amountA, amountB}
	return &offers.MakeResult{
		Offer:      domain.Offer{MintA: mintA, MintB: mintB, AmountA: amountA, AmountB: amountB},
		Submission: s.sub,
	}, nil
}

func (s *stubService) TakeOffer(_ context.Context, maker, offer, _, _ solana.PublicKey) (*offers.TakeResult, error) {
	s.explicit = true
	return &offers.TakeResult{Offer: offer, Maker: maker, Submission: s.sub}, nil
}

func (s *stubService) TakeOfferByAddress(_ context.Context, offer solana.PublicKey) (*offers.TakeResult, error) {
	s.byAddress = true
	return &offers.TakeResult{Offer: offer, Submission: s.sub}, nil
}

type stubJournal struct {
	mu      sync.Mutex
	records []domain.JournalRecord
}

func (s *stubJournal) append(r domain.JournalRecord) {
	s.mu.Lock()
	s.records = append(s.records, r)
	s.mu.Unlock()
}

func (s *stubJournal) EntriesAfter(index uint64) ([]domain.JournalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.JournalRecord
	for _, r := range s.records {
		if r.Index > index {
			out = append(out, r)
		}
	}
	return out, nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := NewServer(":0", nil, nil, nil, nil, nil).Handler()
	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestBalances(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	balances := &stubBalances{holdings: []domain.TokenHolding{{
		Mint:      solana.NewWallet().PublicKey(),
		RawAmount: big.NewInt(1500000),
		Decimals:  6,
		Balance:   big.NewInt(1),
	}}}
	h := NewServer(":0", balances, nil, nil, nil, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/balances/"+owner.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, balances.owner)
	assert.Equal(t, owner, *balances.owner)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.EqualValues(t, 1, got[0]["balance"])

	rec = do(t, h, http.MethodGet, "/api/balances/not-a-key", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	balances.err = errors.New("rpc down")
	rec = do(t, h, http.MethodGet, "/api/balances/"+owner.String(), "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestOffers_GetAndList(t *testing.T) {
	addr := solana.NewWallet().PublicKey()
	maker := solana.NewWallet().PublicKey()
	reader := &stubReader{offers: map[solana.PublicKey]domain.OfferAccount{
		addr: {Address: addr, Maker: maker, WantedAmountB: 5},
	}}
	h := NewServer(":0", nil, reader, nil, nil, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/offers/"+addr.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), maker.String())

	rec = do(t, h, http.MethodGet, "/api/offers/"+solana.NewWallet().PublicKey().String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/offers?maker="+maker.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, reader.maker)
	assert.Equal(t, maker, *reader.maker)

	rec = do(t, h, http.MethodGet, "/api/offers?maker=bad", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMakeOffer(t *testing.T) {
	svc := &stubService{sub: &domain.Submission{Status: domain.SubmissionConfirmed}}
	h := NewServer(":0", nil, nil, svc, nil, nil).Handler()
	mintA := solana.NewWallet().PublicKey().String()
	mintB := solana.NewWallet().PublicKey().String()

	rec := do(t, h, http.MethodPost, "/api/offers",
		`{"mint_a":"`+mintA+`","mint_b":"`+mintB+`","amount_a":"1000000","amount_b":250}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, [2]uint64{1000000, 250}, svc.amounts)

	rec = do(t, h, http.MethodPost, "/api/offers",
		`{"mint_a":"`+mintA+`","mint_b":"`+mintB+`","amount_a":"1.5","amount_b":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/offers", `{"mint_a":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.makeErr = domain.ErrStandardMismatch
	rec = do(t, h, http.MethodPost, "/api/offers",
		`{"mint_a":"`+mintA+`","mint_b":"`+mintB+`","amount_a":1,"amount_b":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "same standard")
}

func TestMakeOffer_NotSentIsAccepted(t *testing.T) {
	svc := &stubService{sub: &domain.Submission{Status: domain.SubmissionNotSent}}
	h := NewServer(":0", nil, nil, svc, nil, nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/offers",
		`{"mint_a":"`+solana.NewWallet().PublicKey().String()+`","mint_b":"`+solana.NewWallet().PublicKey().String()+`","amount_a":1,"amount_b":1}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"not_sent"`)
}

func TestTakeOffer(t *testing.T) {
	svc := &stubService{sub: &domain.Submission{Status: domain.SubmissionConfirmed}}
	h := NewServer(":0", nil, nil, svc, nil, nil).Handler()
	offer := solana.NewWallet().PublicKey().String()

	rec := do(t, h, http.MethodPost, "/api/offers/"+offer+"/take", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, svc.byAddress)
	assert.False(t, svc.explicit)

	body := `{"maker":"` + solana.NewWallet().PublicKey().String() +
		`","mint_a":"` + solana.NewWallet().PublicKey().String() +
		`","mint_b":"` + solana.NewWallet().PublicKey().String() + `"}`
	rec = do(t, h, http.MethodPost, "/api/offers/"+offer+"/take", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, svc.explicit)

	rec = do(t, h, http.MethodPost, "/api/offers/"+offer+"/take", `{"maker":"bad"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnavailable(t *testing.T) {
	h := NewServer(":0", nil, nil, nil, nil, nil).Handler()
	key := solana.NewWallet().PublicKey().String()

	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/api/balances/"+key, "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/api/offers", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodPost, "/api/offers", "{}").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/api/journal/stream", "").Code)
}

func TestJournalStream_ResumesFromLastEventID(t *testing.T) {
	journal := &stubJournal{records: []domain.JournalRecord{
		{Index: 1, Entry: domain.JournalEntry{ID: "a", Action: domain.OfferActionMake, Status: domain.JournalStatusPending}},
		{Index: 2, Entry: domain.JournalEntry{ID: "a", Action: domain.OfferActionMake, Status: domain.JournalStatusConfirmed}},
		{Index: 3, Entry: domain.JournalEntry{ID: "b", Action: domain.OfferActionTake, Status: domain.JournalStatusNotSent}},
	}}
	h := NewServer(":0", nil, nil, nil, journal, nil).Handler()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/journal/stream", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "1")
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()
	<-done

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.NotContains(t, body, "id: 1\n")
	assert.Contains(t, body, "id: 2\n")
	assert.Contains(t, body, "id: 3\n")
	assert.Contains(t, body, `"status":"not_sent"`)
}

func TestJournalStream_WakesOnPublish(t *testing.T) {
	journal := &stubJournal{}
	broadcaster := events.NewJournalBroadcaster(4)
	srv := NewServer(":0", nil, nil, nil, journal, nil)
	srv.Events = broadcaster
	h := srv.Handler()

	// well below the poll interval, so only the broadcast can deliver the entry
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/journal/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return broadcaster.Subscribers() == 1 }, 400*time.Millisecond, 5*time.Millisecond)
	record := domain.JournalRecord{Index: 1, Entry: domain.JournalEntry{ID: "c", Action: domain.OfferActionMake, Status: domain.JournalStatusConfirmed}}
	journal.append(record)
	broadcaster.Publish(record)

	<-done
	assert.Contains(t, rec.Body.String(), "id: 1\n")
	assert.Zero(t, broadcaster.Subscribers())
}

func TestStart_StopsOnCancel(t *testing.T) {
	srv := NewServer("127.0.0.1:0", nil, nil, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStartWithAutoTLS_RequiresDomains(t *testing.T) {
	srv := NewServer(":0", nil, nil, nil, nil, nil)
	assert.Error(t, srv.StartWithAutoTLS(context.Background(), nil, t.TempDir()))
}

func TestParseLastEventID(t *testing.T) {
	assert.Equal(t, uint64(5), parseLastEventID("5", "7"))
	assert.Equal(t, uint64(7), parseLastEventID("", " 7 "))
	assert.Equal(t, uint64(0), parseLastEventID("x", ""))
	assert.Equal(t, uint64(0), parseLastEventID("", ""))
}
