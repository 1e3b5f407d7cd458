// Package offers reads escrow offers and runs make/take flows end to end.
package offers

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/solescrow/internal/domain"
	"github.com/vadiminshakov/solescrow/internal/services/txbuilder"
)

type transactionBuilder interface {
	BuildMakeOffer(ctx context.Context, mintA, mintB solana.PublicKey, amountA, amountB uint64) (*txbuilder.MakeOfferPlan, error)
	BuildTakeOffer(ctx context.Context, maker, offer, mintA, mintB solana.PublicKey) (*txbuilder.TakeOfferPlan, error)
}

type transactionSubmitter interface {
	Submit(ctx context.Context, tx *solana.Transaction) (*domain.Submission, error)
}

type journalStore interface {
	Save(entry domain.JournalEntry) (domain.JournalEntry, error)
}

type offerReader interface {
	GetOffer(ctx context.Context, address solana.PublicKey) (*domain.OfferAccount, error)
}

// MakeResult outcome of a make-offer call.
type MakeResult struct {
	Offer      domain.Offer       `json:"offer"`
	Submission *domain.Submission `json:"submission"`
}

// TakeResult outcome of a take-offer call.
type TakeResult struct {
	Offer      solana.PublicKey   `json:"offer"`
	Maker      solana.PublicKey   `json:"maker"`
	Submission *domain.Submission `json:"submission"`
}

// Service builds, submits and journals escrow transactions for one wallet.
type Service struct {
	builder   transactionBuilder
	submitter transactionSubmitter
	reader    offerReader
	journal   journalStore
	wallet    solana.PublicKey
	logger    *zap.Logger
}

// NewService creates the offer service. journal may be nil.
func NewService(
	builder transactionBuilder,
	submitter transactionSubmitter,
	reader offerReader,
	journal journalStore,
	wallet solana.PublicKey,
	logger *zap.Logger,
) (*Service, error) {
	if builder == nil {
		return nil, fmt.Errorf("transaction builder is nil")
	}
	if submitter == nil {
		return nil, fmt.Errorf("submitter is nil")
	}
	if reader == nil {
		return nil, fmt.Errorf("offer reader is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		builder:   builder,
		submitter: submitter,
		reader:    reader,
		journal:   journal,
		wallet:    wallet,
		logger:    logger,
	}, nil
}

// MakeOffer deposits amountA of mintA into a new offer asking amountB of mintB.
func (s *Service) MakeOffer(ctx context.Context, mintA, mintB solana.PublicKey, amountA, amountB uint64) (*MakeResult, error) {
	plan, err := s.builder.BuildMakeOffer(ctx, mintA, mintB, amountA, amountB)
	if err != nil {
		return nil, err
	}

	entry := s.record(domain.JournalEntry{
		Action:  domain.OfferActionMake,
		Status:  domain.JournalStatusPending,
		Offer:   plan.Offer.Address,
		OfferID: plan.Offer.ID,
		Wallet:  s.wallet,
		MintA:   mintA,
		MintB:   mintB,
		AmountA: amountA,
		AmountB: amountB,
	})

	sub, err := s.submitter.Submit(ctx, plan.Transaction)
	s.finish(entry, sub, err)
	if err != nil {
		return nil, errors.Wrapf(err, "make offer %s", plan.Offer.Address)
	}

	return &MakeResult{Offer: plan.Offer, Submission: sub}, nil
}

// TakeOffer fills the offer at offer created by maker.
func (s *Service) TakeOffer(ctx context.Context, maker, offer, mintA, mintB solana.PublicKey) (*TakeResult, error) {
	plan, err := s.builder.BuildTakeOffer(ctx, maker, offer, mintA, mintB)
	if err != nil {
		return nil, err
	}

	entry := s.record(domain.JournalEntry{
		Action: domain.OfferActionTake,
		Status: domain.JournalStatusPending,
		Offer:  offer,
		Wallet: s.wallet,
		MintA:  mintA,
		MintB:  mintB,
	})

	sub, err := s.submitter.Submit(ctx, plan.Transaction)
	s.finish(entry, sub, err)
	if err != nil {
		return nil, errors.Wrapf(err, "take offer %s", offer)
	}

	return &TakeResult{Offer: offer, Maker: maker, Submission: sub}, nil
}

// TakeOfferByAddress loads maker and mints from the offer account, then takes it.
func (s *Service) TakeOfferByAddress(ctx context.Context, offer solana.PublicKey) (*TakeResult, error) {
	acc, err := s.reader.GetOffer(ctx, offer)
	if err != nil {
		return nil, err
	}
	return s.TakeOffer(ctx, acc.Maker, offer, acc.MintA, acc.MintB)
}

func (s *Service) record(entry domain.JournalEntry) *domain.JournalEntry {
	if s.journal == nil {
		return nil
	}
	saved, err := s.journal.Save(entry)
	if err != nil {
		s.logger.Warn("failed to journal offer",
			zap.String("offer", entry.Offer.String()),
			zap.Error(err))
		return nil
	}
	return &saved
}

func (s *Service) finish(entry *domain.JournalEntry, sub *domain.Submission, submitErr error) {
	if entry == nil {
		return
	}

	switch {
	case submitErr != nil:
		entry.Status = domain.JournalStatusFailed
		entry.Error = submitErr.Error()
	case sub.Sent():
		entry.Status = domain.JournalStatusConfirmed
		entry.Signature = sub.Signature.String()
	default:
		entry.Status = domain.JournalStatusNotSent
	}
	entry.Time = time.Now().UTC()

	if _, err := s.journal.Save(*entry); err != nil {
		s.logger.Warn("failed to journal offer status",
			zap.String("offer", entry.Offer.String()),
			zap.String("status", string(entry.Status)),
			zap.Error(err))
	}
}
