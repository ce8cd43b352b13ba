package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dataqual-cli/internal/history"
	"github.com/KaramelBytes/dataqual-cli/internal/utils"
)

var histJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or clear the recent analysis history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent analyses, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openHistory(currentConfig())
		if err != nil {
			return err
		}
		defer closeFn()
		entries, err := store.List()
		if err != nil {
			return fmt.Errorf("list history: %w", err)
		}
		w := cmd.OutOrStdout()
		if histJSON {
			b, err := utils.PrettyJSON(entries)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(b))
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(w, "(no history)")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(w, "- %s  %-30s score %3d  rows %d  completeness %.1f%%  duplicates %d\n",
				e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.FileName, e.QualityScore,
				e.Summary.TotalRows, e.Summary.Completeness, e.Summary.DuplicateRows)
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded history",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openHistory(currentConfig())
		if err != nil {
			return err
		}
		defer closeFn()
		if err := store.Clear(); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ History cleared")
		return nil
	},
}

var historyTrendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show the quality trend over recent analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openHistory(currentConfig())
		if err != nil {
			return err
		}
		defer closeFn()
		entries, err := store.List()
		if err != nil {
			return fmt.Errorf("list history: %w", err)
		}
		w := cmd.OutOrStdout()
		t := history.ComputeTrend(entries)
		if histJSON {
			b, err := utils.PrettyJSON(t)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(b))
			return err
		}
		if t == nil {
			fmt.Fprintln(w, "Not enough history for a trend (need at least 2 analyses)")
			return nil
		}
		fmt.Fprintf(w, "Average score: %.1f\nTrend: %s\nTotal analyses: %d\n", t.AverageScore, t.Direction, t.TotalAnalyses)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyTrendCmd)
	historyCmd.PersistentFlags().BoolVar(&histJSON, "json", false, "emit JSON")
}
