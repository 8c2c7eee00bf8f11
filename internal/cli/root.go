// Package cli provides the command-line interface for paperflow.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/paperflow/internal/config"
	"github.com/raphaelgruber/paperflow/internal/history"
	"github.com/raphaelgruber/paperflow/internal/llm"
	"github.com/raphaelgruber/paperflow/internal/metrics"
	"github.com/raphaelgruber/paperflow/internal/paperless"
	"github.com/raphaelgruber/paperflow/internal/suggest"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and clients
	cfg       config.Config
	logger    *slog.Logger
	closeLogs func() error
	collector *metrics.Collector
	docStore  *paperless.Store
	histStore *history.Store

	// Lazy-initialized LLM model
	model *llm.Model
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "paperflow",
	Short: "AI metadata enrichment and fuzzy consolidation for paperless-ngx",
	Long: `Paperflow augments a paperless-ngx document archive with AI-derived
metadata: suggested tags, correspondents, document types, titles and
summaries, plus fuzzy consolidation of the near-duplicate entities that
accumulate over time ("Invoice" vs "Invoices" vs "invoce").`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, closeLogs = config.SetupLogger(cfg)
		slog.SetDefault(logger)

		if cfg.PaperlessToken == "" {
			return fmt.Errorf("paperless API token not configured (set PAPERLESS_TOKEN)")
		}

		collector = metrics.NewCollector()
		client := paperless.New(cfg.PaperlessURL, cfg.PaperlessToken,
			paperless.WithLogger(logger),
			paperless.WithMaxRetries(cfg.MaxRetries))
		docStore = paperless.NewStore(client, collector)

		// History is optional: without it runs still work, they just
		// reprocess everything and leave no audit trail.
		ctx := context.Background()
		histStore, err = history.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Warn("history database unavailable, continuing without it", "error", err)
			histStore = nil
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if histStore != nil {
			if err := histStore.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close history database: %v\n", err)
			}
		}
		if closeLogs != nil {
			if err := closeLogs(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// getSuggestService creates the enrichment service with lazy LLM
// initialization. Only commands that actually talk to a model pay the
// provider setup cost.
func getSuggestService() (*suggest.Service, error) {
	if model == nil {
		var err error
		model, err = llm.NewModel(cfg, collector)
		if err != nil {
			return nil, fmt.Errorf("init model: %w", err)
		}
	}
	return suggest.NewService(docStore, model, suggest.Options{
		History: histStore,
		Logger:  logger,
	}), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(consolidateCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(entitiesCmd)
	rootCmd.AddCommand(statsCmd)
}
