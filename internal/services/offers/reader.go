package offers

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/solescrow/internal/domain"
	"github.com/vadiminshakov/solescrow/internal/escrow"
)

type offerFetcher interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetProgramAccountsWithOpts(ctx context.Context, publicKey solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
}

// Reader loads escrow offer accounts from chain.
type Reader struct {
	rpc        offerFetcher
	programID  solana.PublicKey
	commitment rpc.CommitmentType
	logger     *zap.Logger
}

// NewReader creates a reader for offers of the escrow program.
func NewReader(client offerFetcher, programID solana.PublicKey, commitment rpc.CommitmentType, logger *zap.Logger) (*Reader, error) {
	if client == nil {
		return nil, fmt.Errorf("rpc client is nil")
	}
	if programID.IsZero() {
		return nil, fmt.Errorf("escrow program id is not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{rpc: client, programID: programID, commitment: commitment, logger: logger}, nil
}

// GetOffer returns the open offer at address.
func (r *Reader) GetOffer(ctx context.Context, address solana.PublicKey) (*domain.OfferAccount, error) {
	info, err := r.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, errors.Wrapf(domain.ErrOfferNotFound, "%s", address)
		}
		return nil, errors.Wrapf(err, "get offer account %s", address)
	}
	if info == nil || info.Value == nil || info.Value.Data == nil {
		return nil, errors.Wrapf(domain.ErrOfferNotFound, "%s", address)
	}
	if !info.Value.Owner.Equals(r.programID) {
		return nil, errors.Wrapf(domain.ErrOfferNotFound, "%s is owned by %s", address, info.Value.Owner)
	}

	offer, err := escrow.DecodeOffer(address, info.Value.Data.GetBinary())
	if err != nil {
		if errors.Is(err, escrow.ErrNotOfferAccount) {
			return nil, errors.Wrapf(domain.ErrOfferNotFound, "%s: %v", address, err)
		}
		return nil, err
	}
	return offer, nil
}

// ListOffers returns open offers of the program, only those of maker when set.
func (r *Reader) ListOffers(ctx context.Context, maker *solana.PublicKey) ([]domain.OfferAccount, error) {
	filters := []rpc.RPCFilter{{
		Memcmp: &rpc.RPCFilterMemcmp{
			Offset: 0,
			Bytes:  solana.Base58(escrow.OfferAccountDiscriminator[:]),
		},
	}}
	if maker != nil {
		filters = append(filters, rpc.RPCFilter{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: escrow.MakerFilterOffset(),
				Bytes:  solana.Base58(maker.Bytes()),
			},
		})
	}

	accounts, err := r.rpc.GetProgramAccountsWithOpts(ctx, r.programID, &rpc.GetProgramAccountsOpts{
		Commitment: r.commitment,
		Encoding:   solana.EncodingBase64,
		Filters:    filters,
	})
	if err != nil {
		return nil, errors.Wrap(err, "list offer accounts")
	}

	offers := make([]domain.OfferAccount, 0, len(accounts))
	for _, acc := range accounts {
		if acc == nil || acc.Account == nil || acc.Account.Data == nil {
			continue
		}
		offer, err := escrow.DecodeOffer(acc.Pubkey, acc.Account.Data.GetBinary())
		if err != nil {
			r.logger.Warn("skipping undecodable offer account",
				zap.String("account", acc.Pubkey.String()),
				zap.Error(err))
			continue
		}
		offers = append(offers, *offer)
	}

	return offers, nil
}
