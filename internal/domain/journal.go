package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// OfferAction kind of escrow instruction recorded in the journal.
type OfferAction string

const (
	OfferActionMake OfferAction = "make"
	OfferActionTake OfferAction = "take"
)

// JournalStatus lifecycle state of a journaled submission.
type JournalStatus string

const (
	JournalStatusPending   JournalStatus = "pending"
	JournalStatusConfirmed JournalStatus = "confirmed"
	JournalStatusNotSent   JournalStatus = "not_sent"
	JournalStatusFailed    JournalStatus = "failed"
)

// JournalEntry one make/take submission as seen by this client.
type JournalEntry struct {
	ID        string           `json:"id"`
	Time      time.Time        `json:"ts"`
	Action    OfferAction      `json:"action"`
	Status    JournalStatus    `json:"status"`
	Offer     solana.PublicKey `json:"offer"`
	OfferID   OfferID          `json:"offer_id,omitempty"`
	Wallet    solana.PublicKey `json:"wallet"`
	MintA     solana.PublicKey `json:"mint_a"`
	MintB     solana.PublicKey `json:"mint_b"`
	AmountA   uint64           `json:"amount_a,omitempty"`
	AmountB   uint64           `json:"amount_b,omitempty"`
	Signature string           `json:"signature,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// JournalRecord bundles a journal entry with its WAL index.
type JournalRecord struct {
	Index uint64
	Entry JournalEntry
}
