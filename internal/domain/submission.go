package domain

import "github.com/gagliardetto/solana-go"

// SubmissionStatus outcome of handing a transaction to the network.
type SubmissionStatus string

const (
	// SubmissionConfirmed transaction reached the requested commitment.
	SubmissionConfirmed SubmissionStatus = "confirmed"
	// SubmissionNotSent wallet cannot sign, nothing was sent.
	SubmissionNotSent SubmissionStatus = "not_sent"
)

// Submission result of a submit call.
type Submission struct {
	Signature solana.Signature `json:"signature"`
	Status    SubmissionStatus `json:"status"`
	Slot      uint64           `json:"slot,omitempty"`
}

// Sent reports whether the transaction reached the network.
func (s *Submission) Sent() bool {
	return s != nil && s.Status == SubmissionConfirmed
}
