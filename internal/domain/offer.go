package domain

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// OfferID random offer identifier scoped to the maker.
type OfferID uint64

// NewOfferID draws a fresh id from 8 random bytes.
func NewOfferID() (OfferID, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, errors.Wrap(err, "read random offer id")
	}
	return OfferID(binary.BigEndian.Uint64(b[:])), nil
}

// Seed returns the id as the 8-byte little-endian seed used by the program.
func (id OfferID) Seed() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(id))
	return b
}

// String returns the decimal representation.
func (id OfferID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseOfferID parses a decimal offer id.
func ParseOfferID(s string) (OfferID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid offer id %q", s)
	}
	return OfferID(v), nil
}

// Offer escrow offer as built by the maker.
type Offer struct {
	ID      OfferID          `json:"id"`
	Address solana.PublicKey `json:"address"`
	Maker   solana.PublicKey `json:"maker"`
	// MintA offered token.
	MintA solana.PublicKey `json:"mint_a"`
	// MintB requested token.
	MintB   solana.PublicKey `json:"mint_b"`
	AmountA uint64           `json:"amount_a"`
	AmountB uint64           `json:"amount_b"`
}

// OfferAccount offer record decoded from chain.
type OfferAccount struct {
	Address       solana.PublicKey `json:"address"`
	ID            OfferID          `json:"id"`
	Maker         solana.PublicKey `json:"maker"`
	MintA         solana.PublicKey `json:"mint_a"`
	MintB         solana.PublicKey `json:"mint_b"`
	WantedAmountB uint64           `json:"wanted_amount_b"`
	Bump          uint8            `json:"bump"`
}
