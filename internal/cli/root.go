package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vadiminshakov/solescrow/config"
	"github.com/vadiminshakov/solescrow/internal"
)

// options global flags shared by every command.
type options struct {
	configFile string
	jsonOutput bool
	verbose    bool
}

// NewRootCmd builds the solescrow command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "solescrow",
		Short: "solescrow - token escrow client for Solana",
		Long: `solescrow lists SPL and Token-2022 holdings of a wallet and creates or
fills escrow offers on an Anchor escrow program. Both tokens of an offer must
belong to the same token program.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to yaml config")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "development logging")

	rootCmd.AddCommand(
		newBalancesCmd(opts),
		newOfferCmd(opts),
		newDeriveCmd(opts),
		newJournalCmd(opts),
		newServeCmd(opts),
		newSetupCmd(),
	)

	return rootCmd
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func (o *options) config() (*config.Config, error) {
	return config.Load(o.configFile)
}

func (o *options) logger(level string) (*zap.Logger, error) {
	if o.verbose {
		return zap.NewDevelopment()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("incorrect log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// balanceReader wires a read-only holdings reader for owner.
func (o *options) balanceReader(owner solana.PublicKey) (*internal.BalanceReader, func(), error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	logger, err := o.logger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	r, err := internal.NewBalanceReader(cfg, owner, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		if err := r.Close(); err != nil {
			logger.Warn("close balance reader", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return r, cleanup, nil
}

// client loads config and wallet and wires all services. The returned
// cleanup closes the client and flushes the logger.
func (o *options) client() (*internal.EscrowClient, *zap.Logger, func(), error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := o.logger(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}

	wallet, err := internal.LoadWallet(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}

	c, err := internal.NewEscrowClient(cfg, wallet, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := c.Close(); err != nil {
			logger.Warn("close escrow client", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return c, logger, cleanup, nil
}
