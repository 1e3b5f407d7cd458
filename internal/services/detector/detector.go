// Package detector classifies token mints by token standard.
package detector

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/solescrow/internal/domain"
)

// Mode selects which mint property decides the standard.
type Mode string

const (
	// ModeMintAuthority extended iff the mint authority is the Token-2022 program id.
	ModeMintAuthority Mode = "mint_authority"
	// ModeOwner extended iff the mint account is owned by the Token-2022 program.
	ModeOwner Mode = "owner"
)

// IsValid checks if the Mode value is valid.
func (m Mode) IsValid() bool {
	return m == ModeMintAuthority || m == ModeOwner
}

type accountFetcher interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// Detector looks up mints and reports their token standard.
type Detector struct {
	rpc    accountFetcher
	mode   Mode
	strict bool
	logger *zap.Logger
}

// NewDetector creates a detector. With strict set, Resolve refuses mints
// whose standard could not be detected instead of assuming legacy.
func NewDetector(client accountFetcher, mode Mode, strict bool, logger *zap.Logger) (*Detector, error) {
	if client == nil {
		return nil, fmt.Errorf("rpc client is nil")
	}
	if mode == "" {
		mode = ModeMintAuthority
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("unknown detection mode: %s", mode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{rpc: client, mode: mode, strict: strict, logger: logger}, nil
}

// Detect never fails: lookup and decode errors are logged and reported as
// StandardUnknown.
func (d *Detector) Detect(ctx context.Context, mint solana.PublicKey) domain.TokenStandard {
	res, err := d.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		d.logger.Warn("mint lookup failed, standard unknown", zap.String("mint", mint.String()), zap.Error(err))
		return domain.StandardUnknown
	}
	if res == nil || res.Value == nil || res.Value.Data == nil {
		d.logger.Warn("mint account is empty, standard unknown", zap.String("mint", mint.String()))
		return domain.StandardUnknown
	}

	var m token.Mint
	if err := bin.NewBinDecoder(res.Value.Data.GetBinary()).Decode(&m); err != nil {
		d.logger.Warn("malformed mint, standard unknown", zap.String("mint", mint.String()), zap.Error(err))
		return domain.StandardUnknown
	}

	if d.mode == ModeOwner {
		return domain.StandardForProgram(res.Value.Owner)
	}
	if m.MintAuthority != nil && m.MintAuthority.Equals(domain.ExtendedTokenProgramID) {
		return domain.StandardExtended
	}
	return domain.StandardLegacy
}

// Resolve detects both mints, in order, and returns the token program they share.
func (d *Detector) Resolve(ctx context.Context, mintA, mintB solana.PublicKey) (solana.PublicKey, error) {
	standardA := d.Detect(ctx, mintA)
	standardB := d.Detect(ctx, mintB)

	if d.strict && (!standardA.IsKnown() || !standardB.IsKnown()) {
		return solana.PublicKey{}, errors.Wrapf(domain.ErrUnknownStandard, "mint a %s, mint b %s", standardA, standardB)
	}
	if !standardA.ProgramID().Equals(standardB.ProgramID()) {
		return solana.PublicKey{}, errors.Wrapf(domain.ErrStandardMismatch, "mint a is %s, mint b is %s", standardA, standardB)
	}

	d.logger.Debug("token standard resolved",
		zap.String("mint_a", mintA.String()),
		zap.String("mint_b", mintB.String()),
		zap.String("standard_a", standardA.String()),
		zap.String("standard_b", standardB.String()))

	return standardA.ProgramID(), nil
}
