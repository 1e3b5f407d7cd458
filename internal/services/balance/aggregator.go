// Package balance lists the token holdings of a wallet across both token programs.
package balance

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/solescrow/internal/domain"
)

type tokenAccountLister interface {
	GetTokenAccountsByOwner(
		ctx context.Context,
		owner solana.PublicKey,
		conf *rpc.GetTokenAccountsConfig,
		opts *rpc.GetTokenAccountsOpts,
	) (*rpc.GetTokenAccountsResult, error)
}

type metadataResolver interface {
	Resolve(ctx context.Context, mint solana.PublicKey) (*domain.TokenMetadata, error)
}

// parsedTokenAccount jsonParsed shape of an SPL token account.
type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			TokenAmount struct {
				Amount   string `json:"amount"`
				Decimals uint8  `json:"decimals"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// Aggregator reads token accounts of a wallet.
type Aggregator struct {
	rpc        tokenAccountLister
	metadata   metadataResolver
	commitment rpc.CommitmentType
	logger     *zap.Logger
}

// NewAggregator creates an aggregator. metadata may be nil.
func NewAggregator(client tokenAccountLister, metadata metadataResolver, commitment rpc.CommitmentType, logger *zap.Logger) (*Aggregator, error) {
	if client == nil {
		return nil, fmt.Errorf("rpc client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		rpc:        client,
		metadata:   metadata,
		commitment: commitment,
		logger:     logger,
	}, nil
}

// Holdings returns all token accounts of owner, legacy program first.
// A nil owner yields an empty list without touching the network.
func (a *Aggregator) Holdings(ctx context.Context, owner *solana.PublicKey) ([]domain.TokenHolding, error) {
	if owner == nil {
		return []domain.TokenHolding{}, nil
	}

	programs := []solana.PublicKey{domain.LegacyTokenProgramID, domain.ExtendedTokenProgramID}
	results := make([][]domain.TokenHolding, len(programs))

	g, gctx := errgroup.WithContext(ctx)
	for i, program := range programs {
		g.Go(func() error {
			holdings, err := a.list(gctx, *owner, program)
			if err != nil {
				return err
			}
			results[i] = holdings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	holdings := make([]domain.TokenHolding, 0, len(results[0])+len(results[1]))
	for _, r := range results {
		holdings = append(holdings, r...)
	}

	if a.metadata != nil {
		a.enrich(ctx, holdings)
	}

	return holdings, nil
}

func (a *Aggregator) list(ctx context.Context, owner, program solana.PublicKey) ([]domain.TokenHolding, error) {
	res, err := a.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &program},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingJSONParsed, Commitment: a.commitment},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s token accounts", domain.StandardForProgram(program))
	}
	if res == nil {
		return nil, nil
	}

	holdings := make([]domain.TokenHolding, 0, len(res.Value))
	for _, acc := range res.Value {
		if acc == nil || acc.Account.Data == nil {
			continue
		}
		h, err := toHolding(acc.Pubkey, program, acc.Account.Data.GetRawJSON())
		if err != nil {
			return nil, errors.Wrapf(err, "token account %s", acc.Pubkey)
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}

func toHolding(account, program solana.PublicKey, raw []byte) (domain.TokenHolding, error) {
	var parsed parsedTokenAccount
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.TokenHolding{}, errors.Wrap(err, "decode parsed account")
	}
	info := parsed.Parsed.Info

	mint, err := solana.PublicKeyFromBase58(info.Mint)
	if err != nil {
		return domain.TokenHolding{}, errors.Wrap(err, "mint")
	}

	balance, err := domain.GetBalance(info.TokenAmount.Amount, info.TokenAmount.Decimals)
	if err != nil {
		return domain.TokenHolding{}, err
	}
	rawAmount, _ := domain.ParseRawAmount(info.TokenAmount.Amount)

	return domain.TokenHolding{
		Mint:      mint,
		Account:   account,
		Program:   program,
		RawAmount: rawAmount,
		Decimals:  info.TokenAmount.Decimals,
		Balance:   balance,
		UIAmount:  domain.UIAmount(rawAmount, info.TokenAmount.Decimals),
	}, nil
}

func (a *Aggregator) enrich(ctx context.Context, holdings []domain.TokenHolding) {
	for i := range holdings {
		meta, err := a.metadata.Resolve(ctx, holdings[i].Mint)
		if err != nil {
			a.logger.Debug("token metadata unavailable",
				zap.String("mint", holdings[i].Mint.String()),
				zap.Error(err))
			continue
		}
		holdings[i].Metadata = meta
	}
}
