package escrow

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/solescrow/internal/domain"
)

// Offer account field offsets, discriminator included.
const (
	offerIDOffset    = 8
	offerMakerOffset = offerIDOffset + 8
	// OfferAccountSize discriminator + id + maker + mint a + mint b + wanted amount + bump.
	OfferAccountSize = offerMakerOffset + 32*3 + 8 + 1
)

// ErrNotOfferAccount data does not start with the Offer discriminator.
var ErrNotOfferAccount = errors.New("account is not an escrow offer")

type offerLayout struct {
	Discriminator      [8]byte
	ID                 uint64
	Maker              solana.PublicKey
	TokenMintA         solana.PublicKey
	TokenMintB         solana.PublicKey
	TokenBWantedAmount uint64
	Bump               uint8
}

// DecodeOffer decodes an offer account's data.
func DecodeOffer(address solana.PublicKey, data []byte) (*domain.OfferAccount, error) {
	if len(data) < OfferAccountSize {
		return nil, errors.Wrapf(ErrNotOfferAccount, "short data: %d bytes", len(data))
	}

	var layout offerLayout
	if err := bin.NewBorshDecoder(data).Decode(&layout); err != nil {
		return nil, errors.Wrap(err, "decode offer account")
	}
	if layout.Discriminator != OfferAccountDiscriminator {
		return nil, ErrNotOfferAccount
	}

	return &domain.OfferAccount{
		Address:       address,
		ID:            domain.OfferID(layout.ID),
		Maker:         layout.Maker,
		MintA:         layout.TokenMintA,
		MintB:         layout.TokenMintB,
		WantedAmountB: layout.TokenBWantedAmount,
		Bump:          layout.Bump,
	}, nil
}

// MakerFilterOffset byte offset of the maker key, for memcmp filters.
func MakerFilterOffset() uint64 {
	return offerMakerOffset
}
