package internal

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/solescrow/config"
	"github.com/vadiminshakov/solescrow/internal/clients"
	"github.com/vadiminshakov/solescrow/internal/events"
	"github.com/vadiminshakov/solescrow/internal/services/balance"
	"github.com/vadiminshakov/solescrow/internal/services/detector"
	"github.com/vadiminshakov/solescrow/internal/services/metadata"
	"github.com/vadiminshakov/solescrow/internal/services/offers"
	"github.com/vadiminshakov/solescrow/internal/services/submitter"
	"github.com/vadiminshakov/solescrow/internal/services/txbuilder"
	"github.com/vadiminshakov/solescrow/internal/storage/journal"
)

// EscrowClient is the assembled set of services acting for one wallet.
type EscrowClient struct {
	Config    *config.Config
	Solana    *clients.SolanaClient
	Detector  *detector.Detector
	Balances  *balance.Aggregator
	Reader    *offers.Reader
	Offers    *offers.Service
	Journal   *journal.WALStore
	Events    *events.JournalBroadcaster
	Metadata  *metadata.Resolver
	Builder   *txbuilder.Builder
	Submitter *submitter.Submitter
}

// LoadWallet opens the configured keypair. Only when the default keypair path
// does not exist and an owner is configured does it fall back to a watch-only
// wallet; a broken or explicitly configured keypair is an error.
func LoadWallet(cfg *config.Config, logger *zap.Logger) (clients.Wallet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Keypair == "" {
		if cfg.Owner == nil {
			return nil, errors.New("no wallet configured")
		}
		logger.Info("no keypair configured, using watch-only wallet", zap.String("owner", cfg.Owner.String()))
		return clients.NewWatchWallet(*cfg.Owner), nil
	}

	w, err := clients.LoadKeypairWallet(cfg.Keypair)
	if err == nil {
		return w, nil
	}
	if cfg.Owner == nil || cfg.Keypair != config.DefaultKeypair || !errors.Is(err, clients.ErrKeypairMissing) {
		return nil, err
	}

	logger.Warn("default keypair not found, using watch-only wallet: offers will not be sent",
		zap.String("keypair", cfg.Keypair),
		zap.String("owner", cfg.Owner.String()))
	return clients.NewWatchWallet(*cfg.Owner), nil
}

// NewEscrowClient wires every service from cfg. The caller owns Close.
func NewEscrowClient(cfg *config.Config, wallet clients.Wallet, logger *zap.Logger) (*EscrowClient, error) {
	if wallet == nil {
		return nil, errors.New("wallet is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sol := clients.NewSolanaClient(cfg.RPCURL, wallet, cfg.Commitment)
	rpcClient := sol.RPC()

	det, err := detector.NewDetector(rpcClient, detector.Mode(cfg.Detection), cfg.StrictDetection, logger.Named("detector"))
	if err != nil {
		return nil, err
	}

	meta, agg, err := newBalances(cfg, sol, logger)
	if err != nil {
		return nil, err
	}

	builder, err := txbuilder.NewBuilder(rpcClient, det, cfg.ProgramID, wallet.PublicKey(), cfg.Commitment, logger.Named("txbuilder"))
	if err != nil {
		return nil, err
	}

	sub, err := submitter.NewSubmitter(rpcClient, wallet, cfg.Commitment, cfg.ConfirmTimeout, cfg.ConfirmPollInterval, logger.Named("submitter"))
	if err != nil {
		return nil, err
	}

	reader, err := offers.NewReader(rpcClient, cfg.ProgramID, cfg.Commitment, logger.Named("offers"))
	if err != nil {
		return nil, err
	}

	store, err := journal.NewWALStore(cfg.JournalDir)
	if err != nil {
		return nil, err
	}

	broadcaster := events.NewJournalBroadcaster(0)
	store.Broadcast(broadcaster)

	svc, err := offers.NewService(builder, sub, reader, store, wallet.PublicKey(), logger.Named("offers"))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Info("escrow client ready",
		zap.String("rpc", cfg.RPCURL),
		zap.String("program", cfg.ProgramID.String()),
		zap.String("wallet", wallet.PublicKey().String()),
		zap.Bool("can_sign", canSign(wallet)))

	return &EscrowClient{
		Config:    cfg,
		Solana:    sol,
		Detector:  det,
		Balances:  agg,
		Reader:    reader,
		Offers:    svc,
		Journal:   store,
		Events:    broadcaster,
		Metadata:  meta,
		Builder:   builder,
		Submitter: sub,
	}, nil
}

// BalanceReader aggregates holdings of any owner. It needs no keypair and
// no journal.
type BalanceReader struct {
	*balance.Aggregator
	solana *clients.SolanaClient
}

// NewBalanceReader wires the RPC connection, metadata resolver and balance
// aggregator only.
func NewBalanceReader(cfg *config.Config, owner solana.PublicKey, logger *zap.Logger) (*BalanceReader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sol := clients.NewSolanaClient(cfg.RPCURL, clients.NewWatchWallet(owner), cfg.Commitment)
	_, agg, err := newBalances(cfg, sol, logger)
	if err != nil {
		_ = sol.Close()
		return nil, err
	}
	return &BalanceReader{Aggregator: agg, solana: sol}, nil
}

// Close releases the RPC transport.
func (r *BalanceReader) Close() error {
	return r.solana.Close()
}

func newBalances(cfg *config.Config, sol *clients.SolanaClient, logger *zap.Logger) (*metadata.Resolver, *balance.Aggregator, error) {
	meta, err := metadata.NewResolver(sol.RPC(), cfg.MetadataCacheSize, logger.Named("metadata"))
	if err != nil {
		return nil, nil, err
	}
	agg, err := balance.NewAggregator(sol.RPC(), meta, cfg.Commitment, logger.Named("balance"))
	if err != nil {
		return nil, nil, err
	}
	return meta, agg, nil
}

// Owner address whose holdings and offers are shown by default.
func (c *EscrowClient) Owner() solana.PublicKey {
	return c.Solana.Wallet().PublicKey()
}

// Close releases the journal and the RPC transport.
func (c *EscrowClient) Close() error {
	var journalErr error
	if c.Journal != nil {
		journalErr = c.Journal.Close()
	}
	if err := c.Solana.Close(); err != nil {
		return err
	}
	return journalErr
}

func canSign(w clients.Wallet) bool {
	_, ok := w.(clients.Signer)
	return ok
}
