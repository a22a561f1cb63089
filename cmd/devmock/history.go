package main

import (
	"fmt"
	"io"

	"devmock"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show results of finished interviews",
	RunE:  runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum number of entries to show (0 for all)")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := devmock.OpenDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.History(historyLimit)
	if err != nil {
		return err
	}
	printHistory(cmd.OutOrStdout(), entries)
	return nil
}

func printHistory(out io.Writer, entries []devmock.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No finished interviews yet.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %-30s %-7s %d/%d (%d%%) %s\n",
			e.CompletedAt.Format("2006-01-02 15:04"), e.Title, e.Source,
			e.Result.Score, e.Result.Total, e.Result.Percentage, e.Result.Tier.Feedback())
	}
}
