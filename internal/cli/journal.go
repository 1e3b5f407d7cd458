package cli

import (
	"github.com/spf13/cobra"

	"github.com/vadiminshakov/solescrow/internal/domain"
	"github.com/vadiminshakov/solescrow/internal/storage/journal"
)

func newJournalCmd(opts *options) *cobra.Command {
	var history bool

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show make/take submissions recorded by this client",
		Long: `Print the local offer journal. By default each submission is shown once
with its latest status; --history prints every status change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			store, err := journal.NewWALStore(cfg.JournalDir)
			if err != nil {
				return err
			}
			defer store.Close()

			var entries []domain.JournalEntry
			if history {
				records, err := store.EntriesAfter(0)
				if err != nil {
					return err
				}
				for _, r := range records {
					entries = append(entries, r.Entry)
				}
			} else if entries, err = store.Latest(); err != nil {
				return err
			}

			if opts.jsonOutput {
				if entries == nil {
					entries = []domain.JournalEntry{}
				}
				return printJSON(cmd.OutOrStdout(), entries)
			}
			return printJournal(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().BoolVar(&history, "history", false, "print every status change")
	return cmd
}
