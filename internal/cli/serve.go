package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vadiminshakov/solescrow/internal/web"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Serve balances, offers and the journal stream over HTTP. When tls_domains
is configured the API is served over HTTPS with ACME certificates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, logger, cleanup, err := opts.client()
			if err != nil {
				return err
			}
			defer cleanup()

			if addr == "" {
				addr = c.Config.HTTPAddr
			}
			srv := web.NewServer(addr, c.Balances, c.Reader, c.Offers, c.Journal, logger.Named("web"))
			srv.Events = c.Events

			if c.Config.TLSEnabled() {
				logger.Info("starting api with automatic TLS", zap.Strings("domains", c.Config.TLSDomains))
				return srv.StartWithAutoTLS(cmd.Context(), c.Config.TLSDomains, c.Config.TLSCacheDir)
			}
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http_addr)")
	return cmd
}
