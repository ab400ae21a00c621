package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) historyCmd() *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent restore runs from the local ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger := c.services().Ledger
			if runID != "" {
				entries, err := ledger.ByRun(ctxOf(cmd), runID)
				if err != nil {
					return err
				}
				printHistory(c.out, entries)
				return nil
			}
			entries, err := ledger.Recent(ctxOf(cmd), limit)
			if err != nil {
				return err
			}
			printHistory(c.out, entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show every entry of one run")

	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete ledger entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.services().PruneLedger(ctxOf(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Deleted %d entries older than %d days\n", n, c.config().Ledger.RetentionDays)
			return nil
		},
	})
	return cmd
}
