// Command solescrow is a client for a token escrow program on Solana.
// It lists SPL and Token-2022 holdings of a wallet and creates or fills
// escrow offers, from the command line or over a JSON API.
//
// Usage:
//
//	solescrow setup
//	solescrow --config solescrow.yaml balances
//	solescrow offer make --mint-a <mint> --mint-b <mint> --amount-a 1000000 --amount-b 500
//	solescrow serve
//
// Settings may also come from a .env file or SOLESCROW_* environment variables.
package main

import "github.com/vadiminshakov/solescrow/internal/cli"

func main() {
	cli.Execute()
}
