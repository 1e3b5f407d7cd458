package escrow

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/solescrow/internal/domain"
)

var testProgram = solana.MustPublicKeyFromBase58("qbuMdeYxYJXBjU6C6qFKjAKjiRA9PZ4gSbWTubcTS4R")

func key() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func TestDiscriminators(t *testing.T) {
	sum := sha256.Sum256([]byte("global:make_offer"))
	assert.Equal(t, sum[:8], MakeOfferDiscriminator[:])

	sum = sha256.Sum256([]byte("global:take_offer"))
	assert.Equal(t, sum[:8], TakeOfferDiscriminator[:])

	sum = sha256.Sum256([]byte("account:Offer"))
	assert.Equal(t, sum[:8], OfferAccountDiscriminator[:])
}

func TestNewMakeOfferInstruction(t *testing.T) {
	accounts := MakeOfferAccounts{
		Maker:              key(),
		TokenMintA:         key(),
		TokenMintB:         key(),
		MakerTokenAccountA: key(),
		MakerTokenAccountB: key(),
		Offer:              key(),
		Vault:              key(),
		TokenProgram:       domain.LegacyTokenProgramID,
	}

	ix, err := NewMakeOfferInstruction(testProgram, 0x0102030405060708, 1000, 2500, accounts)
	require.NoError(t, err)
	assert.Equal(t, testProgram, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 32)
	assert.Equal(t, MakeOfferDiscriminator[:], data[:8])
	assert.Equal(t, uint64(0x0102030405060708), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(1000), binary.LittleEndian.Uint64(data[16:24]))
	assert.Equal(t, uint64(2500), binary.LittleEndian.Uint64(data[24:32]))

	metas := ix.Accounts()
	require.Len(t, metas, 10)
	order := []solana.PublicKey{
		accounts.Maker, accounts.TokenMintA, accounts.TokenMintB,
		accounts.MakerTokenAccountA, accounts.MakerTokenAccountB,
		accounts.Offer, accounts.Vault,
		solana.SPLAssociatedTokenAccountProgramID, domain.LegacyTokenProgramID, solana.SystemProgramID,
	}
	for i, expected := range order {
		assert.Equal(t, expected, metas[i].PublicKey, "account %d", i)
	}
	assert.True(t, metas[0].IsSigner)
	assert.True(t, metas[0].IsWritable)
	assert.True(t, metas[5].IsWritable)
	assert.False(t, metas[1].IsWritable)
}

func TestNewTakeOfferInstruction(t *testing.T) {
	accounts := TakeOfferAccounts{
		Taker:              key(),
		Maker:              key(),
		TokenMintA:         key(),
		TokenMintB:         key(),
		TakerTokenAccountA: key(),
		TakerTokenAccountB: key(),
		MakerTokenAccountB: key(),
		Offer:              key(),
		Vault:              key(),
		TokenProgram:       domain.ExtendedTokenProgramID,
	}

	ix, err := NewTakeOfferInstruction(testProgram, accounts)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, TakeOfferDiscriminator[:], data)

	metas := ix.Accounts()
	require.Len(t, metas, 12)
	assert.Equal(t, accounts.Taker, metas[0].PublicKey)
	assert.True(t, metas[0].IsSigner)
	assert.Equal(t, accounts.Offer, metas[7].PublicKey)
	assert.Equal(t, accounts.Vault, metas[8].PublicKey)
	assert.Equal(t, domain.ExtendedTokenProgramID, metas[10].PublicKey)
}

func encodeOffer(id uint64, maker, mintA, mintB solana.PublicKey, wanted uint64, bump uint8) []byte {
	buf := new(bytes.Buffer)
	buf.Write(OfferAccountDiscriminator[:])
	_ = binary.Write(buf, binary.LittleEndian, id)
	buf.Write(maker[:])
	buf.Write(mintA[:])
	buf.Write(mintB[:])
	_ = binary.Write(buf, binary.LittleEndian, wanted)
	buf.WriteByte(bump)
	return buf.Bytes()
}

func TestDecodeOffer(t *testing.T) {
	addr, maker, mintA, mintB := key(), key(), key(), key()
	data := encodeOffer(77, maker, mintA, mintB, 5000, 254)
	require.Len(t, data, OfferAccountSize)

	offer, err := DecodeOffer(addr, data)
	require.NoError(t, err)
	assert.Equal(t, addr, offer.Address)
	assert.Equal(t, domain.OfferID(77), offer.ID)
	assert.Equal(t, maker, offer.Maker)
	assert.Equal(t, mintA, offer.MintA)
	assert.Equal(t, mintB, offer.MintB)
	assert.Equal(t, uint64(5000), offer.WantedAmountB)
	assert.Equal(t, uint8(254), offer.Bump)
	assert.Equal(t, maker[:], data[MakerFilterOffset():MakerFilterOffset()+32])
}

func TestDecodeOffer_Rejects(t *testing.T) {
	_, err := DecodeOffer(key(), []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrNotOfferAccount)

	data := encodeOffer(1, key(), key(), key(), 1, 1)
	data[0] ^= 0xff
	_, err = DecodeOffer(key(), data)
	assert.ErrorIs(t, err, ErrNotOfferAccount)
}
