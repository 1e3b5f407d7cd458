package cli

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/vadiminshakov/solescrow/config"
	"github.com/vadiminshakov/solescrow/internal/domain"
	"github.com/vadiminshakov/solescrow/internal/services/address"
)

func newDeriveCmd(opts *options) *cobra.Command {
	deriveCmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive program addresses offline",
	}
	deriveCmd.AddCommand(newDeriveOfferCmd(opts), newDeriveATACmd(opts))
	return deriveCmd
}

func newDeriveOfferCmd(opts *options) *cobra.Command {
	var maker, id, program string

	cmd := &cobra.Command{
		Use:   "offer",
		Short: "Derive the offer address for a maker and offer id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			makerKey, err := solana.PublicKeyFromBase58(maker)
			if err != nil {
				return fmt.Errorf("invalid --maker: %w", err)
			}
			offerID, err := domain.ParseOfferID(id)
			if err != nil {
				return err
			}
			programID, err := solana.PublicKeyFromBase58(program)
			if err != nil {
				return fmt.Errorf("invalid --program: %w", err)
			}

			addr, err := address.OfferAddress(makerKey, offerID, programID)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{"offer": addr, "id": offerID, "maker": makerKey})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), addr)
			return err
		},
	}

	cmd.Flags().StringVar(&maker, "maker", "", "offer maker")
	cmd.Flags().StringVar(&id, "id", "", "offer id (u64)")
	cmd.Flags().StringVar(&program, "program", config.DefaultProgramID, "escrow program id")
	_ = cmd.MarkFlagRequired("maker")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newDeriveATACmd(opts *options) *cobra.Command {
	var mint, owner, tokenProgram string
	var offCurve bool

	cmd := &cobra.Command{
		Use:   "ata",
		Short: "Derive an associated token account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mintKey, err := solana.PublicKeyFromBase58(mint)
			if err != nil {
				return fmt.Errorf("invalid --mint: %w", err)
			}
			ownerKey, err := solana.PublicKeyFromBase58(owner)
			if err != nil {
				return fmt.Errorf("invalid --owner: %w", err)
			}
			programID, err := parseTokenProgram(tokenProgram)
			if err != nil {
				return err
			}

			ata, err := address.AssociatedTokenAddress(mintKey, ownerKey, offCurve, programID)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{"ata": ata, "token_program": programID})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ata)
			return err
		},
	}

	cmd.Flags().StringVar(&mint, "mint", "", "token mint")
	cmd.Flags().StringVar(&owner, "owner", "", "account owner")
	cmd.Flags().StringVar(&tokenProgram, "token-program", "legacy", "legacy, extended or a program id")
	cmd.Flags().BoolVar(&offCurve, "allow-off-curve", false, "allow a PDA as owner")
	_ = cmd.MarkFlagRequired("mint")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func parseTokenProgram(s string) (solana.PublicKey, error) {
	switch s {
	case domain.StandardLegacy.String():
		return domain.LegacyTokenProgramID, nil
	case domain.StandardExtended.String():
		return domain.ExtendedTokenProgramID, nil
	}
	id, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid --token-program %q: %w", s, err)
	}
	return id, nil
}
