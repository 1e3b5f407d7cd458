// Package escrow binds the on-chain escrow program: instruction encoding,
// account ordering and offer account decoding.
package escrow

import (
	"bytes"
	"crypto/sha256"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/solescrow/internal/domain"
)

var (
	MakeOfferDiscriminator    = sighash("global", "make_offer")
	TakeOfferDiscriminator    = sighash("global", "take_offer")
	OfferAccountDiscriminator = sighash("account", "Offer")
)

func sighash(namespace, name string) [8]byte {
	var out [8]byte
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	copy(out[:], sum[:8])
	return out
}

type makeOfferArgs struct {
	Discriminator [8]byte
	ID            uint64
	AmountA       uint64
	AmountB       uint64
}

// MakeOfferAccounts accounts of make_offer, in program order.
type MakeOfferAccounts struct {
	Maker              solana.PublicKey
	TokenMintA         solana.PublicKey
	TokenMintB         solana.PublicKey
	MakerTokenAccountA solana.PublicKey
	MakerTokenAccountB solana.PublicKey
	Offer              solana.PublicKey
	Vault              solana.PublicKey
	TokenProgram       solana.PublicKey
}

// TakeOfferAccounts accounts of take_offer, in program order.
type TakeOfferAccounts struct {
	Taker              solana.PublicKey
	Maker              solana.PublicKey
	TokenMintA         solana.PublicKey
	TokenMintB         solana.PublicKey
	TakerTokenAccountA solana.PublicKey
	TakerTokenAccountB solana.PublicKey
	MakerTokenAccountB solana.PublicKey
	Offer              solana.PublicKey
	Vault              solana.PublicKey
	TokenProgram       solana.PublicKey
}

// NewMakeOfferInstruction builds make_offer(id, token_a_offered_amount, token_b_wanted_amount).
func NewMakeOfferInstruction(programID solana.PublicKey, id domain.OfferID, amountA, amountB uint64, accounts MakeOfferAccounts) (*solana.GenericInstruction, error) {
	data, err := encode(makeOfferArgs{
		Discriminator: MakeOfferDiscriminator,
		ID:            uint64(id),
		AmountA:       amountA,
		AmountB:       amountB,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode make_offer")
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(accounts.Maker).WRITE().SIGNER(),
		solana.Meta(accounts.TokenMintA),
		solana.Meta(accounts.TokenMintB),
		solana.Meta(accounts.MakerTokenAccountA).WRITE(),
		solana.Meta(accounts.MakerTokenAccountB),
		solana.Meta(accounts.Offer).WRITE(),
		solana.Meta(accounts.Vault).WRITE(),
		solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
		solana.Meta(accounts.TokenProgram),
		solana.Meta(solana.SystemProgramID),
	}

	return solana.NewInstruction(programID, metas, data), nil
}

// NewTakeOfferInstruction builds take_offer().
func NewTakeOfferInstruction(programID solana.PublicKey, accounts TakeOfferAccounts) (*solana.GenericInstruction, error) {
	data, err := encode(TakeOfferDiscriminator)
	if err != nil {
		return nil, errors.Wrap(err, "encode take_offer")
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(accounts.Taker).WRITE().SIGNER(),
		solana.Meta(accounts.Maker).WRITE(),
		solana.Meta(accounts.TokenMintA),
		solana.Meta(accounts.TokenMintB),
		solana.Meta(accounts.TakerTokenAccountA).WRITE(),
		solana.Meta(accounts.TakerTokenAccountB).WRITE(),
		solana.Meta(accounts.MakerTokenAccountB).WRITE(),
		solana.Meta(accounts.Offer).WRITE(),
		solana.Meta(accounts.Vault).WRITE(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(accounts.TokenProgram),
		solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
	}

	return solana.NewInstruction(programID, metas, data), nil
}

func encode(v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
