package domain

import "github.com/pkg/errors"

var (
	// ErrStandardMismatch both offer mints must use the same token program.
	ErrStandardMismatch = errors.New("both tokens in an offer must be of the same standard (either both Token-2022 or both legacy SPL)")
	// ErrUnknownStandard token standard could not be detected and strict detection is on.
	ErrUnknownStandard = errors.New("token standard could not be detected")
	// ErrInvalidAmount offer amounts must be positive.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrOfferNotFound no offer account at the address.
	ErrOfferNotFound = errors.New("offer not found")
	// ErrInvalidBalance raw amount is not a non-negative integer.
	ErrInvalidBalance = errors.New("invalid raw token amount")
)

// IsValidation reports whether err was raised by client-side validation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrStandardMismatch) ||
		errors.Is(err, ErrUnknownStandard) ||
		errors.Is(err, ErrInvalidAmount)
}
