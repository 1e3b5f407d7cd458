package clients

import (
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaClient bundles the RPC connection with the wallet acting on it.
type SolanaClient struct {
	rpc        *rpc.Client
	wallet     Wallet
	commitment rpc.CommitmentType
}

// NewSolanaClient connects to endpoint. The connection is lazy: nothing is
// sent until the first call.
func NewSolanaClient(endpoint string, wallet Wallet, commitment rpc.CommitmentType) *SolanaClient {
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &SolanaClient{
		rpc:        rpc.New(endpoint),
		wallet:     wallet,
		commitment: commitment,
	}
}

func (c *SolanaClient) RPC() *rpc.Client               { return c.rpc }
func (c *SolanaClient) Wallet() Wallet                 { return c.wallet }
func (c *SolanaClient) Commitment() rpc.CommitmentType { return c.commitment }

// Close releases the underlying HTTP transport.
func (c *SolanaClient) Close() error {
	return c.rpc.Close()
}
