package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/gagliardetto/solana-go"

	"github.com/vadiminshakov/solescrow/internal/domain"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func printHoldings(w io.Writer, holdings []domain.TokenHolding) error {
	if len(holdings) == 0 {
		_, err := fmt.Fprintln(w, "no token accounts")
		return err
	}
	rows := make([][]string, 0, len(holdings))
	for _, h := range holdings {
		symbol := ""
		if h.Metadata != nil {
			symbol = h.Metadata.Symbol
		}
		rows = append(rows, []string{
			h.Mint.String(),
			symbol,
			h.Standard().String(),
			h.Balance.String(),
			h.UIAmount.String(),
		})
	}
	return printTable(w, []string{"MINT", "SYMBOL", "STANDARD", "BALANCE", "AMOUNT"}, rows)
}

func printOffers(w io.Writer, list []domain.OfferAccount) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "no open offers")
		return err
	}
	rows := make([][]string, 0, len(list))
	for _, o := range list {
		rows = append(rows, []string{
			o.Address.String(),
			o.ID.String(),
			o.Maker.String(),
			o.MintA.String(),
			o.MintB.String(),
			fmt.Sprintf("%d", o.WantedAmountB),
		})
	}
	return printTable(w, []string{"OFFER", "ID", "MAKER", "MINT A", "MINT B", "WANTED B"}, rows)
}

func printJournal(w io.Writer, entries []domain.JournalEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "journal is empty")
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Time.Format("2006-01-02 15:04:05"),
			string(e.Action),
			string(e.Status),
			e.Offer.String(),
			e.Signature,
			e.Error,
		})
	}
	return printTable(w, []string{"TIME", "ACTION", "STATUS", "OFFER", "SIGNATURE", "ERROR"}, rows)
}

func printSubmission(w io.Writer, what string, offer solana.PublicKey, sub *domain.Submission) error {
	if !sub.Sent() {
		_, err := fmt.Fprintf(w, "%s %s built, not sent: wallet cannot sign\n", what, offer)
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s confirmed in slot %d\nsignature: %s\n", what, offer, sub.Slot, sub.Signature)
	return err
}
