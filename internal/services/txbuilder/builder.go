// Package txbuilder assembles make-offer and take-offer transactions.
package txbuilder

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/solescrow/internal/domain"
	"github.com/vadiminshakov/solescrow/internal/escrow"
	"github.com/vadiminshakov/solescrow/internal/services/address"
)

type blockhashProvider interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

type standardResolver interface {
	Resolve(ctx context.Context, mintA, mintB solana.PublicKey) (solana.PublicKey, error)
}

// MakeOfferPlan is a built, unsigned make-offer transaction with the accounts it touches.
type MakeOfferPlan struct {
	Offer        domain.Offer
	TokenProgram solana.PublicKey
	Accounts     escrow.MakeOfferAccounts
	Transaction  *solana.Transaction
}

// TakeOfferPlan is a built, unsigned take-offer transaction with the accounts it touches.
type TakeOfferPlan struct {
	TokenProgram solana.PublicKey
	Accounts     escrow.TakeOfferAccounts
	Transaction  *solana.Transaction
}

// Builder derives every account from scratch on each call.
type Builder struct {
	rpc        blockhashProvider
	standards  standardResolver
	programID  solana.PublicKey
	payer      solana.PublicKey
	commitment rpc.CommitmentType
	newOfferID func() (domain.OfferID, error)
	logger     *zap.Logger
}

// NewBuilder creates a builder acting for payer against the escrow program.
func NewBuilder(
	client blockhashProvider,
	standards standardResolver,
	programID solana.PublicKey,
	payer solana.PublicKey,
	commitment rpc.CommitmentType,
	logger *zap.Logger,
) (*Builder, error) {
	if client == nil {
		return nil, fmt.Errorf("rpc client is nil")
	}
	if standards == nil {
		return nil, fmt.Errorf("standard resolver is nil")
	}
	if programID.IsZero() {
		return nil, fmt.Errorf("escrow program id is not set")
	}
	if payer.IsZero() {
		return nil, fmt.Errorf("payer is not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Builder{
		rpc:        client,
		standards:  standards,
		programID:  programID,
		payer:      payer,
		commitment: commitment,
		newOfferID: domain.NewOfferID,
		logger:     logger,
	}, nil
}

// BuildMakeOffer builds a make-offer transaction for a fresh random offer id.
// Mints of different standards are rejected before the blockhash is fetched.
func (b *Builder) BuildMakeOffer(ctx context.Context, mintA, mintB solana.PublicKey, amountA, amountB uint64) (*MakeOfferPlan, error) {
	if amountA == 0 || amountB == 0 {
		return nil, domain.ErrInvalidAmount
	}

	id, err := b.newOfferID()
	if err != nil {
		return nil, err
	}
	offerAddr, err := address.OfferAddress(b.payer, id, b.programID)
	if err != nil {
		return nil, err
	}

	tokenProgram, err := b.standards.Resolve(ctx, mintA, mintB)
	if err != nil {
		return nil, err
	}

	vault, err := address.VaultAddress(offerAddr, mintA, tokenProgram)
	if err != nil {
		return nil, errors.Wrap(err, "derive vault")
	}
	makerA, err := address.AssociatedTokenAddress(mintA, b.payer, true, tokenProgram)
	if err != nil {
		return nil, errors.Wrap(err, "derive maker token account a")
	}
	makerB, err := address.AssociatedTokenAddress(mintB, b.payer, true, tokenProgram)
	if err != nil {
		return nil, errors.Wrap(err, "derive maker token account b")
	}

	accounts := escrow.MakeOfferAccounts{
		Maker:              b.payer,
		TokenMintA:         mintA,
		TokenMintB:         mintB,
		MakerTokenAccountA: makerA,
		MakerTokenAccountB: makerB,
		Offer:              offerAddr,
		Vault:              vault,
		TokenProgram:       tokenProgram,
	}
	ix, err := escrow.NewMakeOfferInstruction(b.programID, id, amountA, amountB, accounts)
	if err != nil {
		return nil, err
	}

	tx, err := b.compile(ctx, ix)
	if err != nil {
		return nil, err
	}

	b.logger.Info("make offer built",
		zap.String("offer", offerAddr.String()),
		zap.Stringer("offer_id", id),
		zap.String("token_program", tokenProgram.String()))

	return &MakeOfferPlan{
		Offer: domain.Offer{
			ID:      id,
			Address: offerAddr,
			Maker:   b.payer,
			MintA:   mintA,
			MintB:   mintB,
			AmountA: amountA,
			AmountB: amountB,
		},
		TokenProgram: tokenProgram,
		Accounts:     accounts,
		Transaction:  tx,
	}, nil
}

// BuildTakeOffer builds a take-offer transaction with the builder's payer as taker.
// Both mints are checked for a shared standard, as for make-offer.
func (b *Builder) BuildTakeOffer(ctx context.Context, maker, offer, mintA, mintB solana.PublicKey) (*TakeOfferPlan, error) {
	tokenProgram, err := b.standards.Resolve(ctx, mintA, mintB)
	if err != nil {
		return nil, err
	}

	takerA, err := address.AssociatedTokenAddress(mintA, b.payer, true, tokenProgram)
	if err != nil {
		return nil, errors.Wrap(err, "derive taker token account a")
	}
	takerB, err := address.AssociatedTokenAddress(mintB, b.payer, true, tokenProgram)
	if err != nil {
		return nil, errors.Wrap(err, "derive taker token account b")
	}
	makerB, err := address.AssociatedTokenAddress(mintB, maker, true, tokenProgram)
	if err != nil {
		return nil, errors.Wrap(err, "derive maker token account b")
	}
	vault, err := address.VaultAddress(offer, mintA, tokenProgram)
	if err != nil {
		return nil, errors.Wrap(err, "derive vault")
	}

	accounts := escrow.TakeOfferAccounts{
		Taker:              b.payer,
		Maker:              maker,
		TokenMintA:         mintA,
		TokenMintB:         mintB,
		TakerTokenAccountA: takerA,
		TakerTokenAccountB: takerB,
		MakerTokenAccountB: makerB,
		Offer:              offer,
		Vault:              vault,
		TokenProgram:       tokenProgram,
	}
	ix, err := escrow.NewTakeOfferInstruction(b.programID, accounts)
	if err != nil {
		return nil, err
	}

	tx, err := b.compile(ctx, ix)
	if err != nil {
		return nil, err
	}

	b.logger.Info("take offer built",
		zap.String("offer", offer.String()),
		zap.String("maker", maker.String()),
		zap.String("token_program", tokenProgram.String()))

	return &TakeOfferPlan{
		TokenProgram: tokenProgram,
		Accounts:     accounts,
		Transaction:  tx,
	}, nil
}

// compile wraps ix into a v0 transaction paid by the builder's payer.
func (b *Builder) compile(ctx context.Context, ix solana.Instruction) (*solana.Transaction, error) {
	latest, err := b.rpc.GetLatestBlockhash(ctx, b.commitment)
	if err != nil {
		return nil, errors.Wrap(err, "get latest blockhash")
	}
	if latest == nil || latest.Value == nil {
		return nil, fmt.Errorf("latest blockhash response is empty")
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		latest.Value.Blockhash,
		solana.TransactionPayer(b.payer),
	)
	if err != nil {
		return nil, errors.Wrap(err, "compile transaction")
	}
	tx.Message.SetVersion(solana.MessageVersionV0)

	return tx, nil
}
