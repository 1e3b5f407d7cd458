// Package address derives the deterministic accounts used by the escrow program.
package address

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/solescrow/internal/domain"
)

// OfferSeedPrefix literal tag of the offer PDA seeds.
var OfferSeedPrefix = []byte("offer")

// ErrOwnerOffCurve owner is a PDA and off-curve owners were not allowed.
var ErrOwnerOffCurve = errors.New("token owner is off curve")

// OfferAddress derives the offer account from "offer" ‖ maker ‖ id (u64 LE).
func OfferAddress(maker solana.PublicKey, id domain.OfferID, programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{
			OfferSeedPrefix,
			maker.Bytes(),
			id.Seed(),
		},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, errors.Wrap(err, "derive offer address")
	}
	return addr, nil
}

// AssociatedTokenAddress derives the associated token account of owner for mint
// under the given token program.
func AssociatedTokenAddress(mint, owner solana.PublicKey, allowOwnerOffCurve bool, tokenProgramID solana.PublicKey) (solana.PublicKey, error) {
	if !allowOwnerOffCurve && !solana.IsOnCurve(owner.Bytes()) {
		return solana.PublicKey{}, ErrOwnerOffCurve
	}

	addr, _, err := solana.FindProgramAddress(
		[][]byte{
			owner.Bytes(),
			tokenProgramID.Bytes(),
			mint.Bytes(),
		},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, errors.Wrap(err, "derive associated token address")
	}
	return addr, nil
}

// VaultAddress derives the escrow vault: the offer's associated account for mint A.
func VaultAddress(offer, mintA solana.PublicKey, tokenProgramID solana.PublicKey) (solana.PublicKey, error) {
	return AssociatedTokenAddress(mintA, offer, true, tokenProgramID)
}
