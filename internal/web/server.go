package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/solescrow/config"
	"github.com/vadiminshakov/solescrow/internal/domain"
	"github.com/vadiminshakov/solescrow/internal/services/offers"
)

const journalPollInterval = 2 * time.Second

type holdingsReader interface {
	Holdings(ctx context.Context, owner *solana.PublicKey) ([]domain.TokenHolding, error)
}

type offerReader interface {
	GetOffer(ctx context.Context, address solana.PublicKey) (*domain.OfferAccount, error)
	ListOffers(ctx context.Context, maker *solana.PublicKey) ([]domain.OfferAccount, error)
}

type offerService interface {
	MakeOffer(ctx context.Context, mintA, mintB solana.PublicKey, amountA, amountB uint64) (*offers.MakeResult, error)
	TakeOffer(ctx context.Context, maker, offer, mintA, mintB solana.PublicKey) (*offers.TakeResult, error)
	TakeOfferByAddress(ctx context.Context, offer solana.PublicKey) (*offers.TakeResult, error)
}

type journalReader interface {
	EntriesAfter(index uint64) ([]domain.JournalRecord, error)
}

type journalEvents interface {
	Subscribe() chan domain.JournalRecord
	Unsubscribe(ch chan domain.JournalRecord)
}

// Server exposes the escrow client over a JSON HTTP API.
type Server struct {
	Addr     string
	Balances holdingsReader
	Reader   offerReader
	Offers   offerService
	Journal  journalReader
	// Events wakes journal streams as soon as an entry is saved. Without it
	// streams fall back to polling.
	Events journalEvents
	logger *zap.Logger
}

// NewServer creates a new API server. Any dependency may be nil; its routes
// then answer 503.
func NewServer(addr string, balances holdingsReader, reader offerReader, svc offerService, journal journalReader, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Addr:     addr,
		Balances: balances,
		Reader:   reader,
		Offers:   svc,
		Journal:  journal,
		logger:   logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/balances/{owner}", s.handleBalances).Methods(http.MethodGet)
	api.HandleFunc("/offers", s.handleListOffers).Methods(http.MethodGet)
	api.HandleFunc("/offers", s.handleMakeOffer).Methods(http.MethodPost)
	api.HandleFunc("/offers/{address}", s.handleGetOffer).Methods(http.MethodGet)
	api.HandleFunc("/offers/{address}/take", s.handleTakeOffer).Methods(http.MethodPost)
	api.HandleFunc("/journal/stream", s.handleJournalStream).Methods(http.MethodGet)

	return r
}

// Start serves plain HTTP until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := s.httpServer(s.Addr, s.Handler())
	s.logger.Info("api listening", zap.String("addr", s.Addr))
	return serveAll(ctx, s.logger, listener{srv, srv.ListenAndServe})
}

// StartWithAutoTLS serves HTTPS with ACME certificates for domains on s.Addr
// and answers HTTP-01 challenges on :80. Certificates are kept in cacheDir.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if len(domains) == 0 {
		return fmt.Errorf("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = config.DefaultTLSCacheDir
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	challenge := s.httpServer(":80", manager.HTTPHandler(nil))
	api := s.httpServer(s.Addr, s.Handler())
	api.TLSConfig = manager.TLSConfig()
	api.TLSConfig.MinVersion = tls.VersionTLS12

	s.logger.Info("api listening with autocert", zap.String("addr", s.Addr), zap.Strings("domains", domains))
	return serveAll(ctx, s.logger,
		listener{challenge, challenge.ListenAndServe},
		listener{api, func() error { return api.ListenAndServeTLS("", "") }},
	)
}

func (s *Server) httpServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

type listener struct {
	srv   *http.Server
	serve func() error
}

// serveAll runs every listener until ctx is cancelled or one of them fails,
// then shuts all of them down.
func serveAll(ctx context.Context, logger *zap.Logger, listeners ...listener) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range listeners {
		g.Go(func() error {
			if err := l.serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrapf(err, "serve %s", l.srv.Addr)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, l := range listeners {
			if err := l.srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("server shutdown", zap.String("addr", l.srv.Addr), zap.Error(err))
			}
		}
		return nil
	})

	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	if s.Balances == nil {
		unavailable(w, "balances")
		return
	}
	owner, ok := pathKey(w, r, "owner")
	if !ok {
		return
	}

	holdings, err := s.Balances.Holdings(r.Context(), &owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holdings)
}

func (s *Server) handleListOffers(w http.ResponseWriter, r *http.Request) {
	if s.Reader == nil {
		unavailable(w, "offer reader")
		return
	}

	var maker *solana.PublicKey
	if v := r.URL.Query().Get("maker"); v != "" {
		key, err := solana.PublicKeyFromBase58(v)
		if err != nil {
			http.Error(w, "invalid maker: "+err.Error(), http.StatusBadRequest)
			return
		}
		maker = &key
	}

	list, err := s.Reader.ListOffers(r.Context(), maker)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	if s.Reader == nil {
		unavailable(w, "offer reader")
		return
	}
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}

	offer, err := s.Reader.GetOffer(r.Context(), addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

type makeOfferRequest struct {
	MintA   string          `json:"mint_a"`
	MintB   string          `json:"mint_b"`
	AmountA decimal.Decimal `json:"amount_a"`
	AmountB decimal.Decimal `json:"amount_b"`
}

func (s *Server) handleMakeOffer(w http.ResponseWriter, r *http.Request) {
	if s.Offers == nil {
		unavailable(w, "offer service")
		return
	}

	var req makeOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	mintA, err := solana.PublicKeyFromBase58(req.MintA)
	if err != nil {
		http.Error(w, "invalid mint_a: "+err.Error(), http.StatusBadRequest)
		return
	}
	mintB, err := solana.PublicKeyFromBase58(req.MintB)
	if err != nil {
		http.Error(w, "invalid mint_b: "+err.Error(), http.StatusBadRequest)
		return
	}
	amountA, err := domain.RawAmountFromDecimal(req.AmountA)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amountB, err := domain.RawAmountFromDecimal(req.AmountB)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.Offers.MakeOffer(r.Context(), mintA, mintB, amountA, amountB)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, statusFor(res.Submission), res)
}

type takeOfferRequest struct {
	Maker string `json:"maker"`
	MintA string `json:"mint_a"`
	MintB string `json:"mint_b"`
}

func (s *Server) handleTakeOffer(w http.ResponseWriter, r *http.Request) {
	if s.Offers == nil {
		unavailable(w, "offer service")
		return
	}
	offer, ok := pathKey(w, r, "address")
	if !ok {
		return
	}

	var req takeOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var (
		res *offers.TakeResult
		err error
	)
	if req.Maker == "" && req.MintA == "" && req.MintB == "" {
		res, err = s.Offers.TakeOfferByAddress(r.Context(), offer)
	} else {
		keys := make([]solana.PublicKey, 3)
		for i, v := range []string{req.Maker, req.MintA, req.MintB} {
			if keys[i], err = solana.PublicKeyFromBase58(v); err != nil {
				http.Error(w, "maker, mint_a and mint_b must all be valid addresses", http.StatusBadRequest)
				return
			}
		}
		res, err = s.Offers.TakeOffer(r.Context(), keys[0], offer, keys[1], keys[2])
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, statusFor(res.Submission), res)
}

func (s *Server) handleJournalStream(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		unavailable(w, "journal")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// send a comment heartbeat every 30s so proxies keep connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(journalPollInterval)
	defer pollTicker.Stop()

	var updates chan domain.JournalRecord
	if s.Events != nil {
		updates = s.Events.Subscribe()
		defer s.Events.Unsubscribe(updates)
	}

	lastIndex := parseLastEventID(r.Header.Get("Last-Event-ID"), r.URL.Query().Get("last_event_id"))
	sendEntries := func() error {
		records, err := s.Journal.EntriesAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Entry)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: offer\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			lastIndex = record.Index
		}
		flusher.Flush()
		return nil
	}

	if err := sendEntries(); err != nil {
		http.Error(w, "failed to load journal", http.StatusInternalServerError)
		s.logger.Error("journal stream initial load", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case _, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if err := sendEntries(); err != nil {
				s.logger.Warn("journal stream update", zap.Error(err))
			}
		case <-pollTicker.C:
			if err := sendEntries(); err != nil {
				s.logger.Warn("journal stream poll", zap.Error(err))
			}
		}
	}
}

// writeError maps client-side validation to 400, missing offers to 404 and
// everything else (RPC, submission) to 502.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrOfferNotFound):
		status = http.StatusNotFound
	default:
		s.logger.Warn("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor answers 202 when the wallet could not sign and nothing was sent.
func statusFor(sub *domain.Submission) int {
	if sub.Sent() {
		return http.StatusOK
	}
	return http.StatusAccepted
}

func pathKey(w http.ResponseWriter, r *http.Request, name string) (solana.PublicKey, bool) {
	key, err := solana.PublicKeyFromBase58(mux.Vars(r)[name])
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid %s: %v", name, err), http.StatusBadRequest)
		return solana.PublicKey{}, false
	}
	return key, true
}

func unavailable(w http.ResponseWriter, what string) {
	http.Error(w, what+" not available", http.StatusServiceUnavailable)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// parseLastEventID extracts an SSE event ID from either the Last-Event-ID header or a query parameter.
func parseLastEventID(headerVal, queryVal string) uint64 {
	idStr := strings.TrimSpace(headerVal)
	if idStr == "" {
		idStr = strings.TrimSpace(queryVal)
	}
	if idStr == "" {
		return 0
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
