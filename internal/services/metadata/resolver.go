// Package metadata resolves Metaplex token metadata for mints.
package metadata

import (
	"context"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/solescrow/internal/domain"
)

// ProgramID Metaplex token metadata program.
var ProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// ErrNoMetadata mint has no metadata account.
var ErrNoMetadata = errors.New("token metadata not found")

const (
	metadataSeed     = "metadata"
	defaultCacheSize = 256
	// first byte of a v1 metadata account
	keyMetadataV1 = 4
)

type accountFetcher interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

type metadataLayout struct {
	Key             uint8
	UpdateAuthority solana.PublicKey
	Mint            solana.PublicKey
	Name            string
	Symbol          string
	URI             string
}

// Resolver looks up and caches token metadata.
type Resolver struct {
	rpc    accountFetcher
	cache  *lru.Cache[solana.PublicKey, *domain.TokenMetadata]
	logger *zap.Logger
}

// NewResolver creates a resolver with a cache of cacheSize mints.
func NewResolver(client accountFetcher, cacheSize int, logger *zap.Logger) (*Resolver, error) {
	if client == nil {
		return nil, fmt.Errorf("rpc client is nil")
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cache, err := lru.New[solana.PublicKey, *domain.TokenMetadata](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create metadata cache")
	}

	return &Resolver{rpc: client, cache: cache, logger: logger}, nil
}

// Address returns the metadata PDA of mint.
func Address(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(metadataSeed), ProgramID.Bytes(), mint.Bytes()},
		ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, errors.Wrap(err, "derive metadata address")
	}
	return addr, nil
}

// Resolve returns metadata of mint. Mints without metadata are cached too and
// keep returning ErrNoMetadata.
func (r *Resolver) Resolve(ctx context.Context, mint solana.PublicKey) (*domain.TokenMetadata, error) {
	if meta, ok := r.cache.Get(mint); ok {
		if meta == nil {
			return nil, ErrNoMetadata
		}
		return meta, nil
	}

	addr, err := Address(mint)
	if err != nil {
		return nil, err
	}

	info, err := r.rpc.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			r.cache.Add(mint, nil)
			return nil, ErrNoMetadata
		}
		return nil, errors.Wrapf(err, "get metadata account %s", addr)
	}
	if info == nil || info.Value == nil || info.Value.Data == nil {
		r.cache.Add(mint, nil)
		return nil, ErrNoMetadata
	}

	meta, err := Decode(info.Value.Data.GetBinary())
	if err != nil {
		return nil, errors.Wrapf(err, "decode metadata of %s", mint)
	}

	r.cache.Add(mint, meta)
	r.logger.Debug("token metadata resolved",
		zap.String("mint", mint.String()),
		zap.String("symbol", meta.Symbol))

	return meta, nil
}

// Decode reads name, symbol and uri from a metadata account. On-chain strings
// are NUL padded; the padding is trimmed.
func Decode(data []byte) (*domain.TokenMetadata, error) {
	var layout metadataLayout
	if err := bin.NewBorshDecoder(data).Decode(&layout); err != nil {
		return nil, err
	}
	if layout.Key != keyMetadataV1 {
		return nil, fmt.Errorf("unexpected metadata key %d", layout.Key)
	}

	return &domain.TokenMetadata{
		Name:   trimPadding(layout.Name),
		Symbol: trimPadding(layout.Symbol),
		URI:    trimPadding(layout.URI),
	}, nil
}

func trimPadding(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}
