package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/paperflow/internal/suggest"
)

var (
	suggestApply     bool
	suggestReprocess bool
	suggestIDs       []int
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest tags, correspondent, document type and title for documents",
	Long: `Suggest asks the configured LLM for metadata for each document and
resolves the suggested names against existing entities, creating missing
ones only when applying. Without --apply nothing is written.

Examples:
  paperflow suggest
  paperflow suggest --id 42 --id 43
  paperflow suggest --apply
  paperflow suggest --apply --reprocess`,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().BoolVar(&suggestApply, "apply", false, "write suggestions back to the documents")
	suggestCmd.Flags().BoolVar(&suggestReprocess, "reprocess", false, "include documents already handled in earlier runs")
	suggestCmd.Flags().IntSliceVar(&suggestIDs, "id", nil, "limit to specific document ids (repeatable)")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	svc, err := getSuggestService()
	if err != nil {
		return err
	}

	report, err := runPipelineProgress(context.Background(), "suggest", func(ctx context.Context, onProgress func(done, total int)) (*suggest.Report, error) {
		return svc.SuggestMetadata(ctx, suggest.RunOptions{
			DocumentIDs: suggestIDs,
			Apply:       suggestApply,
			Reprocess:   suggestReprocess,
			OnProgress:  onProgress,
		})
	})
	if err != nil {
		return fmt.Errorf("suggest metadata: %w", err)
	}

	if !suggestApply {
		printSuggestions(report)
	}
	return nil
}

func printSuggestions(report *suggest.Report) {
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
		if result.Suggestion == nil {
			continue
		}
		s := result.Suggestion
		if s.Title != "" && s.Title != result.Title {
			fmt.Printf("  title:         %s\n", s.Title)
		}
		if len(s.Tags) > 0 {
			fmt.Printf("  tags:          %s\n", strings.Join(s.Tags, ", "))
		}
		if s.Correspondent != "" {
			fmt.Printf("  correspondent: %s\n", s.Correspondent)
		}
		if s.DocumentType != "" {
			fmt.Printf("  type:          %s\n", s.DocumentType)
		}
	}
	fmt.Println("\nRe-run with --apply to write these to the documents.")
}
