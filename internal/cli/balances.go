package cli

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/vadiminshakov/solescrow/internal/domain"
)

func newBalancesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "balances [owner]",
		Short: "List token holdings of a wallet",
		Long: `List SPL and Token-2022 token accounts of owner (the configured wallet
when omitted). Balances are whole tokens, truncated toward zero. An explicit
owner needs no keypair.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				holdings []domain.TokenHolding
				err      error
			)
			if len(args) == 1 {
				owner, perr := solana.PublicKeyFromBase58(args[0])
				if perr != nil {
					return fmt.Errorf("invalid owner: %w", perr)
				}
				holdings, err = ownerHoldings(cmd.Context(), opts, owner)
			} else {
				holdings, err = walletHoldings(cmd.Context(), opts)
			}
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), holdings)
			}
			return printHoldings(cmd.OutOrStdout(), holdings)
		},
	}
}

func ownerHoldings(ctx context.Context, opts *options, owner solana.PublicKey) ([]domain.TokenHolding, error) {
	r, cleanup, err := opts.balanceReader(owner)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return r.Holdings(ctx, &owner)
}

func walletHoldings(ctx context.Context, opts *options) ([]domain.TokenHolding, error) {
	c, _, cleanup, err := opts.client()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	owner := c.Owner()
	return c.Balances.Holdings(ctx, &owner)
}
