package suggest

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/paperflow/internal/history"
	"github.com/raphaelgruber/paperflow/internal/models"
)

// summaryNotePrefix marks notes this pipeline wrote, so reruns and humans
// can tell them from hand-written notes.
const summaryNotePrefix = "AI summary: "

// Summarize generates a summary for each selected document and, when
// opts.Apply is set, persists it as a note on the document.
func (s *Service) Summarize(ctx context.Context, opts RunOptions) (*Report, error) {
	docs, err := s.loadDocuments(ctx, history.TaskSummary, opts)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	report := s.runDocuments(ctx, docs, opts, func(ctx context.Context, doc models.Document) (DocumentResult, error) {
		result := DocumentResult{DocumentID: doc.ID, Title: doc.Title}

		if strings.TrimSpace(doc.Content) == "" {
			result.Error = "document has no text content"
			return result, nil
		}

		// The note itself is the durable marker: even without a history
		// database a rerun must not stack a second summary on the document.
		if !opts.Reprocess {
			if existing, err := s.existingSummary(ctx, doc.ID); err != nil {
				s.logger.Warn("failed to list notes", "document_id", doc.ID, "error", err)
			} else if existing != "" {
				result.Summary = existing
				return result, nil
			}
		}

		summary, err := s.model.Summarize(ctx, doc.Title, doc.Content)
		if err != nil {
			return result, fatalOrRecord(err, &result)
		}
		result.Summary = summary

		if !opts.Apply {
			return result, nil
		}

		if err := s.store.AddNote(ctx, doc.ID, summaryNotePrefix+summary); err != nil {
			return result, fatalOrRecord(err, &result)
		}
		result.Applied = true

		if err := s.history.MarkProcessed(ctx, doc.ID, history.TaskSummary, s.model.Model()); err != nil {
			s.logger.Warn("failed to mark document processed", "document_id", doc.ID, "error", err)
		}
		return result, nil
	})

	s.logger.Info("summary run finished",
		"total", report.Total, "processed", report.Processed, "failed", report.Failed, "apply", opts.Apply)
	return report, nil
}

// existingSummary returns the text of a summary note this pipeline wrote in
// an earlier run, or "" when the document has none.
func (s *Service) existingSummary(ctx context.Context, documentID int) (string, error) {
	notes, err := s.store.ListNotes(ctx, documentID)
	if err != nil {
		return "", err
	}
	for _, note := range notes {
		if strings.HasPrefix(note.Note, summaryNotePrefix) {
			return strings.TrimPrefix(note.Note, summaryNotePrefix), nil
		}
	}
	return "", nil
}
