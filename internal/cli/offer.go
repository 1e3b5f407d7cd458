package cli

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vadiminshakov/solescrow/internal/domain"
	"github.com/vadiminshakov/solescrow/internal/services/offers"
)

func newOfferCmd(opts *options) *cobra.Command {
	offerCmd := &cobra.Command{
		Use:   "offer",
		Short: "Create, take and inspect escrow offers",
	}
	offerCmd.AddCommand(
		newOfferMakeCmd(opts),
		newOfferTakeCmd(opts),
		newOfferListCmd(opts),
		newOfferShowCmd(opts),
	)
	return offerCmd
}

func newOfferMakeCmd(opts *options) *cobra.Command {
	var mintA, mintB, amountA, amountB string

	cmd := &cobra.Command{
		Use:   "make",
		Short: "Deposit token A into a new offer asking for token B",
		Long: `Create an escrow offer. Amounts are raw base units (no decimals applied).
Both mints must use the same token program; mixed offers are rejected before
anything is sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := solana.PublicKeyFromBase58(mintA)
			if err != nil {
				return fmt.Errorf("invalid --mint-a: %w", err)
			}
			b, err := solana.PublicKeyFromBase58(mintB)
			if err != nil {
				return fmt.Errorf("invalid --mint-b: %w", err)
			}
			rawA, err := parseAmount(amountA)
			if err != nil {
				return fmt.Errorf("invalid --amount-a: %w", err)
			}
			rawB, err := parseAmount(amountB)
			if err != nil {
				return fmt.Errorf("invalid --amount-b: %w", err)
			}

			c, _, cleanup, err := opts.client()
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := c.Offers.MakeOffer(cmd.Context(), a, b, rawA, rawB)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "offer id: %s\n", res.Offer.ID)
			return printSubmission(cmd.OutOrStdout(), "offer", res.Offer.Address, res.Submission)
		},
	}

	cmd.Flags().StringVar(&mintA, "mint-a", "", "mint of the offered token")
	cmd.Flags().StringVar(&mintB, "mint-b", "", "mint of the requested token")
	cmd.Flags().StringVar(&amountA, "amount-a", "", "offered amount in base units")
	cmd.Flags().StringVar(&amountB, "amount-b", "", "requested amount in base units")
	for _, f := range []string{"mint-a", "mint-b", "amount-a", "amount-b"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newOfferTakeCmd(opts *options) *cobra.Command {
	var maker, mintA, mintB string

	cmd := &cobra.Command{
		Use:   "take <offer>",
		Short: "Fill an open offer",
		Long: `Take the offer at the given address. Maker and mints are read from the
offer account unless all three are passed as flags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			offer, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("invalid offer address: %w", err)
			}

			explicit := maker != "" || mintA != "" || mintB != ""
			var keys [3]solana.PublicKey
			if explicit {
				for i, v := range []string{maker, mintA, mintB} {
					if keys[i], err = solana.PublicKeyFromBase58(v); err != nil {
						return fmt.Errorf("--maker, --mint-a and --mint-b must all be valid addresses: %w", err)
					}
				}
			}

			c, _, cleanup, err := opts.client()
			if err != nil {
				return err
			}
			defer cleanup()

			var res *offers.TakeResult
			if explicit {
				res, err = c.Offers.TakeOffer(cmd.Context(), keys[0], offer, keys[1], keys[2])
			} else {
				res, err = c.Offers.TakeOfferByAddress(cmd.Context(), offer)
			}
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			return printSubmission(cmd.OutOrStdout(), "take", offer, res.Submission)
		},
	}

	cmd.Flags().StringVar(&maker, "maker", "", "offer maker")
	cmd.Flags().StringVar(&mintA, "mint-a", "", "mint of the offered token")
	cmd.Flags().StringVar(&mintB, "mint-b", "", "mint of the requested token")
	return cmd
}

func newOfferListCmd(opts *options) *cobra.Command {
	var maker string
	var mine bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open offers of the escrow program",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, cleanup, err := opts.client()
			if err != nil {
				return err
			}
			defer cleanup()

			var filter *solana.PublicKey
			switch {
			case maker != "":
				key, err := solana.PublicKeyFromBase58(maker)
				if err != nil {
					return fmt.Errorf("invalid --maker: %w", err)
				}
				filter = &key
			case mine:
				owner := c.Owner()
				filter = &owner
			}

			list, err := c.Reader.ListOffers(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), list)
			}
			return printOffers(cmd.OutOrStdout(), list)
		},
	}

	cmd.Flags().StringVar(&maker, "maker", "", "only offers of this maker")
	cmd.Flags().BoolVar(&mine, "mine", false, "only offers of the configured wallet")
	cmd.MarkFlagsMutuallyExclusive("maker", "mine")
	return cmd
}

func newOfferShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <offer>",
		Short: "Show one offer account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("invalid offer address: %w", err)
			}

			c, _, cleanup, err := opts.client()
			if err != nil {
				return err
			}
			defer cleanup()

			offer, err := c.Reader.GetOffer(cmd.Context(), addr)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), offer)
			}
			return printOffers(cmd.OutOrStdout(), []domain.OfferAccount{*offer})
		},
	}
}

func parseAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return domain.RawAmountFromDecimal(d)
}
