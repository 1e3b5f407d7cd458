// Package domain defines core data structures used throughout the escrow client.
package domain

import "github.com/gagliardetto/solana-go"

var (
	// LegacyTokenProgramID original SPL token program.
	LegacyTokenProgramID = solana.TokenProgramID
	// ExtendedTokenProgramID Token-2022 (token extensions) program.
	ExtendedTokenProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
)

// TokenStandard token program a mint conforms to.
type TokenStandard string

const (
	// StandardLegacy mint owned by the original SPL token program.
	StandardLegacy TokenStandard = "legacy"
	// StandardExtended mint owned by the Token-2022 program.
	StandardExtended TokenStandard = "extended"
	// StandardUnknown detection failed.
	StandardUnknown TokenStandard = "unknown"
)

// String returns the string representation.
func (s TokenStandard) String() string {
	return string(s)
}

// IsKnown reports whether detection produced a definite answer.
func (s TokenStandard) IsKnown() bool {
	return s == StandardLegacy || s == StandardExtended
}

// ProgramID returns the token program for the standard.
// Unknown maps to the legacy program.
func (s TokenStandard) ProgramID() solana.PublicKey {
	if s == StandardExtended {
		return ExtendedTokenProgramID
	}
	return LegacyTokenProgramID
}

// StandardForProgram maps a token program id back to its standard.
func StandardForProgram(programID solana.PublicKey) TokenStandard {
	switch {
	case programID.Equals(LegacyTokenProgramID):
		return StandardLegacy
	case programID.Equals(ExtendedTokenProgramID):
		return StandardExtended
	default:
		return StandardUnknown
	}
}
