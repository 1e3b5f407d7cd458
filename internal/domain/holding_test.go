package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBalance(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		decimals uint8
		expected int64
	}{
		{name: "zero amount", raw: "0", decimals: 9, expected: 0},
		{name: "zero decimals keeps raw", raw: "1500000", decimals: 0, expected: 1500000},
		{name: "truncates fraction", raw: "1500000", decimals: 6, expected: 1},
		{name: "never rounds up", raw: "1999999", decimals: 6, expected: 1},
		{name: "below one token", raw: "999", decimals: 6, expected: 0},
		{name: "exact", raw: "2000000000", decimals: 9, expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetBalance(tt.raw, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, 0, got.Cmp(big.NewInt(tt.expected)), "got %s", got)
		})
	}
}

func TestGetBalance_BeyondUint64(t *testing.T) {
	got, err := GetBalance("123456789012345678901234567890", 18)
	require.NoError(t, err)
	assert.Equal(t, "123456789012", got.String())
}

func TestGetBalance_Invalid(t *testing.T) {
	for _, raw := range []string{"", "abc", "-5", "1.5"} {
		_, err := GetBalance(raw, 6)
		assert.ErrorIs(t, err, ErrInvalidBalance, raw)
	}
}

func TestUIAmount(t *testing.T) {
	got := UIAmount(big.NewInt(1500000), 6)
	assert.True(t, got.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, UIAmount(nil, 6).IsZero())
}

func TestOfferID_Seed(t *testing.T) {
	id := OfferID(0x0102030405060708)
	assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, id.Seed())

	parsed, err := ParseOfferID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestTokenStandard_ProgramID(t *testing.T) {
	assert.Equal(t, LegacyTokenProgramID, StandardLegacy.ProgramID())
	assert.Equal(t, ExtendedTokenProgramID, StandardExtended.ProgramID())
	assert.Equal(t, LegacyTokenProgramID, StandardUnknown.ProgramID())
	assert.Equal(t, StandardExtended, StandardForProgram(ExtendedTokenProgramID))
	assert.False(t, StandardUnknown.IsKnown())
}

func TestRawAmountFromDecimal(t *testing.T) {
	v, err := RawAmountFromDecimal(decimal.RequireFromString("1500000"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1500000), v)

	v, err = RawAmountFromDecimal(decimal.RequireFromString("18446744073709551615"))
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), v)

	for _, s := range []string{"1.5", "-1", "18446744073709551616"} {
		_, err := RawAmountFromDecimal(decimal.RequireFromString(s))
		assert.ErrorIs(t, err, ErrInvalidAmount, s)
	}
}
