// Package submitter signs transactions with the held wallet, sends them and
// waits for confirmation.
package submitter

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/solescrow/internal/clients"
	"github.com/vadiminshakov/solescrow/internal/domain"
	"github.com/vadiminshakov/solescrow/pkg/retrier"
)

var (
	// ErrNotConfirmed signature has not reached the requested commitment yet.
	ErrNotConfirmed = errors.New("transaction not confirmed")
	// ErrTransactionFailed the transaction landed with an execution error.
	ErrTransactionFailed = errors.New("transaction failed")
)

const (
	defaultConfirmTimeout = 60 * time.Second
	defaultPollInterval   = 500 * time.Millisecond
)

type transactionSender interface {
	SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// Submitter sends transactions on behalf of a wallet.
type Submitter struct {
	rpc        transactionSender
	wallet     clients.Wallet
	commitment rpc.CommitmentType
	confirm    *retrier.Retrier
	logger     *zap.Logger
}

// NewSubmitter creates a submitter. Zero timeout or interval pick defaults.
func NewSubmitter(
	client transactionSender,
	wallet clients.Wallet,
	commitment rpc.CommitmentType,
	confirmTimeout, pollInterval time.Duration,
	logger *zap.Logger,
) (*Submitter, error) {
	if client == nil {
		return nil, fmt.Errorf("rpc client is nil")
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet is nil")
	}
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	if _, ok := commitmentRank[string(commitment)]; !ok {
		return nil, fmt.Errorf("unsupported commitment: %s", commitment)
	}
	if confirmTimeout <= 0 {
		confirmTimeout = defaultConfirmTimeout
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	confirm := retrier.New(
		retrier.WithInitialInterval(pollInterval),
		retrier.WithMaxInterval(4*pollInterval),
		retrier.WithMultiplier(1.5),
		retrier.WithJitter(0),
		retrier.WithMaxRetries(int(confirmTimeout/pollInterval)+1),
		retrier.WithMaxElapsed(confirmTimeout),
	)

	return &Submitter{
		rpc:        client,
		wallet:     wallet,
		commitment: commitment,
		confirm:    confirm,
		logger:     logger,
	}, nil
}

// Submit signs tx, sends it and blocks until it is confirmed. A wallet that
// cannot sign yields a SubmissionNotSent result and no error.
func (s *Submitter) Submit(ctx context.Context, tx *solana.Transaction) (*domain.Submission, error) {
	signer, ok := s.wallet.(clients.Signer)
	if !ok {
		s.logger.Warn("wallet cannot sign and send, transaction not submitted",
			zap.String("wallet", s.wallet.PublicKey().String()))
		return &domain.Submission{Status: domain.SubmissionNotSent}, nil
	}

	if err := signer.SignTransaction(tx); err != nil {
		return nil, err
	}

	sig, err := s.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: s.commitment,
	})
	if err != nil {
		return nil, errors.Wrap(err, "send transaction")
	}
	s.logger.Info("transaction sent", zap.String("signature", sig.String()))

	slot, err := retrier.DoWithData(s.confirm, ctx, func(ctx context.Context) (uint64, error) {
		return s.status(ctx, sig)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "confirm %s", sig)
	}

	s.logger.Info("transaction confirmed",
		zap.String("signature", sig.String()),
		zap.Uint64("slot", slot),
		zap.String("commitment", string(s.commitment)))

	return &domain.Submission{
		Signature: sig,
		Status:    domain.SubmissionConfirmed,
		Slot:      slot,
	}, nil
}

// status returns the slot once sig reached the submitter's commitment.
// RPC and execution errors are permanent; only pending signatures are polled again.
func (s *Submitter) status(ctx context.Context, sig solana.Signature) (uint64, error) {
	res, err := s.rpc.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		return 0, retrier.Permanent(errors.Wrap(err, "get signature status"))
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return 0, ErrNotConfirmed
	}

	st := res.Value[0]
	if st.Err != nil {
		return 0, retrier.Permanent(errors.Wrapf(ErrTransactionFailed, "%v", st.Err))
	}
	if commitmentRank[string(st.ConfirmationStatus)] < commitmentRank[string(s.commitment)] {
		return 0, ErrNotConfirmed
	}
	return st.Slot, nil
}

var commitmentRank = map[string]int{
	string(rpc.CommitmentProcessed): 1,
	string(rpc.CommitmentConfirmed): 2,
	string(rpc.CommitmentFinalized): 3,
}
