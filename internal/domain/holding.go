package domain

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TokenMetadata optional display data of a mint.
type TokenMetadata struct {
	Name   string `json:"name,omitempty"`
	Symbol string `json:"symbol,omitempty"`
	URI    string `json:"uri,omitempty"`
}

// TokenHolding token account owned by a wallet.
type TokenHolding struct {
	Mint    solana.PublicKey `json:"mint"`
	Account solana.PublicKey `json:"account"`
	Program solana.PublicKey `json:"program"`
	// RawAmount balance in base units.
	RawAmount *big.Int `json:"raw_amount"`
	Decimals  uint8    `json:"decimals"`
	// Balance RawAmount truncated to whole tokens.
	Balance *big.Int `json:"balance"`
	// UIAmount exact RawAmount / 10^Decimals.
	UIAmount decimal.Decimal `json:"ui_amount"`
	Metadata *TokenMetadata  `json:"metadata,omitempty"`
}

// Standard returns the token standard of the holding's program.
func (h TokenHolding) Standard() TokenStandard {
	return StandardForProgram(h.Program)
}

// GetBalance returns floor(raw / 10^decimals) using integer division.
// The fractional remainder is dropped.
func GetBalance(raw string, decimals uint8) (*big.Int, error) {
	amount, err := ParseRawAmount(raw)
	if err != nil {
		return nil, err
	}
	divider := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return amount.Quo(amount, divider), nil
}

// ParseRawAmount parses a non-negative decimal base-unit amount.
func ParseRawAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() < 0 {
		return nil, ErrInvalidBalance
	}
	return amount, nil
}

// UIAmount returns raw / 10^decimals without loss.
func UIAmount(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// RawAmountFromDecimal converts a whole base-unit amount into a uint64.
// Fractions, negatives and values beyond uint64 are rejected.
func RawAmountFromDecimal(d decimal.Decimal) (uint64, error) {
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, errors.Wrapf(ErrInvalidAmount, "%s is not a whole non-negative base-unit amount", d)
	}
	v := d.BigInt()
	if !v.IsUint64() {
		return 0, errors.Wrapf(ErrInvalidAmount, "%s overflows u64", d)
	}
	return v.Uint64(), nil
}
