package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tradejob/internal/journal"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		symbol string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled runs for a symbol, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.cfg.JournalPath
			if path == "" {
				return errors.New("no journal configured: set journalPath or --journal")
			}
			j, err := journal.NewSQLite(path)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer j.Close()

			runs, err := j.ListRuns(cmd.Context(), symbol, limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintf(out, "no runs journaled for %s\n", symbol)
				return nil
			}
			for _, run := range runs {
				d := run.Decision
				fmt.Fprintf(out, "%s  %-4d %-5s %-16s pnl=%-10s avg=%.4f last=%.4f cancel=%d",
					d.Timestamp.Format("2006-01-02 15:04:05"), d.RunCount, d.Intent, d.Result,
					d.PnL.StringFixed(2), d.Average, d.Last, d.CancelTradeJob)
				if d.Termination != "" {
					fmt.Fprintf(out, " termination=%s", d.Termination)
				}
				if d.Error != "" {
					fmt.Fprintf(out, " error=%q", d.Error)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "symbol to list (required)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to show")
	_ = cmd.MarkFlagRequired("symbol")
	return cmd
}
