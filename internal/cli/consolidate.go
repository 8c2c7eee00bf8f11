package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/paperflow/internal/consolidate"
	"github.com/raphaelgruber/paperflow/internal/history"
	"github.com/raphaelgruber/paperflow/internal/metrics"
	"github.com/raphaelgruber/paperflow/internal/models"
	"github.com/raphaelgruber/paperflow/internal/similarity"
)

var (
	consolidateKind        string
	consolidateThreshold   float64
	consolidateScorer      string
	consolidateApproximate bool
	consolidateApply       bool
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Find and merge near-duplicate tags, correspondents or document types",
	Long: `Consolidate clusters entity names by fuzzy similarity and merges each
cluster into the entity with the most documents. Without --apply it only
prints what it would merge.

Examples:
  paperflow consolidate --kind tag
  paperflow consolidate --kind correspondent --threshold 0.9
  paperflow consolidate --kind tag --apply
  paperflow consolidate --kind tag --approximate --apply`,
	RunE: runConsolidate,
}

func init() {
	consolidateCmd.Flags().StringVarP(&consolidateKind, "kind", "k", "", "entity kind: tag, correspondent or document_type (required)")
	consolidateCmd.Flags().Float64VarP(&consolidateThreshold, "threshold", "t", 0, "similarity threshold 0..1 (default from config)")
	consolidateCmd.Flags().StringVar(&consolidateScorer, "scorer", "dice", "similarity algorithm: dice or levenshtein")
	consolidateCmd.Flags().BoolVar(&consolidateApproximate, "approximate", false, "use the indexed batched matcher for large entity sets")
	consolidateCmd.Flags().BoolVar(&consolidateApply, "apply", false, "execute the merges instead of just reporting them")
	_ = consolidateCmd.MarkFlagRequired("kind")
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	kind, err := models.ParseEntityKind(consolidateKind)
	if err != nil {
		return err
	}
	threshold := consolidateThreshold
	if !cmd.Flags().Changed("threshold") {
		threshold = cfg.Threshold
	}
	approximate := consolidateApproximate || cfg.UseApproximate

	var scorer similarity.Scorer
	switch consolidateScorer {
	case "dice":
		scorer = similarity.NewDiceScorer()
	case "levenshtein":
		scorer = similarity.NewLevenshteinScorer()
	default:
		return fmt.Errorf("unknown scorer %q (want dice or levenshtein)", consolidateScorer)
	}

	svc := consolidate.NewService(docStore, consolidate.Options{
		Scorer:        scorer,
		BatchSize:     cfg.BatchSize,
		UpdateWorkers: cfg.UpdateWorkers,
		Collector:     collector,
		Logger:        logger,
	})

	if !consolidateApply {
		groups, err := svc.FindSimilar(ctx, kind, threshold, approximate)
		if err != nil {
			return fmt.Errorf("find similar %s entities: %w", kind, err)
		}
		printGroups(kind, groups)
		printRunStats(svc.Stats())
		recordConsolidationRun(ctx, svc, kind, threshold, approximate, groups, nil)
		return nil
	}

	report := svc.PlanAndMerge(ctx, kind, threshold, approximate)
	printMergeReport(report)
	recordConsolidationRun(ctx, svc, kind, threshold, approximate, nil, report)

	if len(report.Errors) > 0 {
		return fmt.Errorf("%d merge(s) had errors", len(report.Errors))
	}
	return nil
}

func printGroups(kind models.EntityKind, groups []models.SimilarityGroup) {
	if len(groups) == 0 {
		fmt.Printf("No similar %s entities found.\n", kind)
		return
	}

	fmt.Printf("Similar %s groups (%d):\n\n", kind, len(groups))
	for _, group := range groups {
		plan := consolidate.Plan(group)
		names := make([]string, 0, len(group.Entities))
		for _, e := range group.Entities {
			marker := ""
			if e.ID == plan.Primary.ID {
				marker = "*"
			}
			names = append(names, fmt.Sprintf("%s%s (%d docs)", marker, e.Name, e.DocumentCount))
		}
		fmt.Printf("- %s\n", strings.Join(names, ", "))
	}
	fmt.Println("\n* = entity that would survive a merge. Re-run with --apply to merge.")
}

func printMergeReport(report *consolidate.MergeReport) {
	fmt.Printf("Merges completed: %d\n", report.MergeCount)
	for _, detail := range report.Details {
		status := "ok"
		if !detail.Succeeded() {
			status = "partial"
		}
		fmt.Printf("- [%s] %s %q kept (id %d), retired %v, %d document(s) updated\n",
			status, detail.Kind, detail.PrimaryName, detail.PrimaryID, detail.RetiredIDs, detail.DocumentsUpdated)
		for _, e := range detail.Errors {
			fmt.Printf("    error: %s\n", e)
		}
	}
	for _, e := range report.Errors {
		fmt.Printf("Error: %s\n", e)
	}
	printRunStats(report.Stats)
}

func printRunStats(stats metrics.PerformanceSnapshot) {
	fmt.Printf("\nComparisons: %d  Cache hit rate: %.0f%%", stats.Comparisons, stats.CacheHitRate*100)
	if stats.ElapsedSeconds != nil {
		fmt.Printf("  Elapsed: %.2fs", *stats.ElapsedSeconds)
	}
	fmt.Printf("  Heap: %.1f MiB\n", float64(stats.MemoryBytes)/(1024*1024))
}

// recordConsolidationRun persists the run in the history database. Failure
// to record is a warning, never a reason to fail the run itself.
func recordConsolidationRun(ctx context.Context, svc *consolidate.Service, kind models.EntityKind, threshold float64, approximate bool, groups []models.SimilarityGroup, report *consolidate.MergeReport) {
	if histStore == nil {
		return
	}

	stats := svc.Stats()
	run := history.Run{
		RunID:        svc.LastRunID(),
		Kind:         string(kind),
		EntityCount:  svc.LastEntityCount(),
		Threshold:    threshold,
		Approximate:  approximate,
		DryRun:       report == nil,
		GroupCount:   len(groups),
		Comparisons:  int(stats.Comparisons),
		CacheHitRate: stats.CacheHitRate,
	}
	if stats.ElapsedSeconds != nil {
		run.ElapsedSeconds = *stats.ElapsedSeconds
	}
	if report != nil {
		run.MergeCount = report.MergeCount
		run.GroupCount = len(report.Details)
		run.Errors = report.Errors
	}

	if err := histStore.RecordRun(ctx, run); err != nil {
		logger.Warn("failed to record consolidation run", "error", err)
	}
}
