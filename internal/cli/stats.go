package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recent consolidation runs from the history database",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVarP(&statsLimit, "limit", "n", 20, "max runs to show")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if histStore == nil {
		fmt.Println("History database not configured (set PAPERFLOW_HISTORY_URL to enable run history).")
		return nil
	}

	runs, err := histStore.RecentRuns(ctx, statsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No consolidation runs recorded yet.")
		return nil
	}

	fmt.Printf("Consolidation runs (%d):\n\n", len(runs))
	for _, run := range runs {
		mode := "merge"
		if run.DryRun {
			mode = "dry-run"
		}
		fmt.Printf("- %s  %s  %s %s t=%.2f\n", run.Started.Format("2006-01-02 15:04"), run.RunID, run.Kind, mode, run.Threshold)
		fmt.Printf("  entities=%d groups=%d merges=%d comparisons=%d cache=%.0f%% elapsed=%.2fs\n",
			run.EntityCount, run.GroupCount, run.MergeCount, run.Comparisons, run.CacheHitRate*100, run.ElapsedSeconds)
		if len(run.Errors) > 0 && verbose {
			for _, e := range run.Errors {
				fmt.Printf("  error: %s\n", e)
			}
		}
	}
	return nil
}
