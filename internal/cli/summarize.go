package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/paperflow/internal/suggest"
)

var (
	summarizeApply     bool
	summarizeReprocess bool
	summarizeIDs       []int
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate AI summaries and store them as document notes",
	Long: `Summarize asks the configured LLM for a short summary of each document.
With --apply the summary is persisted as a note on the document; documents
that already carry a summary from an earlier run are skipped unless
--reprocess is given.

Examples:
  paperflow summarize
  paperflow summarize --id 42
  paperflow summarize --apply`,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().BoolVar(&summarizeApply, "apply", false, "store summaries as notes on the documents")
	summarizeCmd.Flags().BoolVar(&summarizeReprocess, "reprocess", false, "include documents already summarized in earlier runs")
	summarizeCmd.Flags().IntSliceVar(&summarizeIDs, "id", nil, "limit to specific document ids (repeatable)")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	svc, err := getSuggestService()
	if err != nil {
		return err
	}

	report, err := runPipelineProgress(context.Background(), "summarize", func(ctx context.Context, onProgress func(done, total int)) (*suggest.Report, error) {
		return svc.Summarize(ctx, suggest.RunOptions{
			DocumentIDs: summarizeIDs,
			Apply:       summarizeApply,
			Reprocess:   summarizeReprocess,
			OnProgress:  onProgress,
		})
	})
	if err != nil {
		return fmt.Errorf("summarize documents: %w", err)
	}

	if !summarizeApply {
		printSummaries(report)
	}
	return nil
}

func printSummaries(report *suggest.Report) {
	if report == nil || len(report.Results) == 0 {
		fmt.Println("No documents to process.")
		return
	}

	for _, result := range report.Results {
		fmt.Printf("Document %d: %s\n", result.DocumentID, result.Title)
		if result.Error != "" {
			fmt.Printf("  error: %s\n", result.Error)
			continue
		}
		fmt.Printf("  %s\n", result.Summary)
	}
	fmt.Println("\nRe-run with --apply to store these as notes.")
}
