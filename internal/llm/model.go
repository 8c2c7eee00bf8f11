// Package llm provides text generation for metadata suggestion and document
// summarization using langchaingo.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/raphaelgruber/paperflow/internal/config"
	"github.com/raphaelgruber/paperflow/internal/metrics"
)

// maxContentChars caps how much document text goes into one prompt.
const maxContentChars = 12000

// Model wraps a langchaingo LLM for text generation.
type Model struct {
	llm       llms.Model
	modelName string
	collector *metrics.Collector
}

// NewModel creates an LLM model based on configuration. collector may be nil.
func NewModel(cfg config.Config, collector *metrics.Collector) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:       model,
		modelName: cfg.LLMModel,
		collector: collector,
	}, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// GenerateWithSystem generates text with a system prompt.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	start := time.Now()
	response, err := m.llm.GenerateContent(ctx, messages)
	if m.collector != nil {
		m.collector.RecordTiming(metrics.OpLLMGenerate, time.Since(start), err)
	}
	if err != nil {
		return "", wrapFatalError(fmt.Errorf("generate: %w", err))
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return response.Choices[0].Content, nil
}

// Suggestion is the model's proposed metadata for one document. Empty fields
// mean the model had no confident proposal.
type Suggestion struct {
	Title         string   `json:"title"`
	Tags          []string `json:"tags"`
	Correspondent string   `json:"correspondent"`
	DocumentType  string   `json:"document_type"`
}

// SuggestMetadata asks the model for title, tags, correspondent and document
// type for a document. Existing entity names are offered so the model reuses
// them instead of inventing near-duplicates.
func (m *Model) SuggestMetadata(ctx context.Context, title, content string, existingTags, existingCorrespondents, existingTypes []string) (Suggestion, error) {
	systemPrompt := `You are a document filing assistant for a personal document archive.
Given a document's text, propose filing metadata.

Respond with a single JSON object and nothing else:
{"title": "...", "tags": ["..."], "correspondent": "...", "document_type": "..."}

Guidelines:
- Prefer names from the provided existing lists; only invent a new name when nothing fits.
- 1 to 4 tags, lowercase.
- correspondent is the sender or issuing organization, empty string if unclear.
- document_type is a short category like "invoice" or "contract", empty string if unclear.
- title is concise and descriptive, without dates unless essential.`

	userPrompt := fmt.Sprintf(`Existing tags: %s
Existing correspondents: %s
Existing document types: %s

Document title: %s

Document text:
%s

JSON:`,
		joinOrNone(existingTags),
		joinOrNone(existingCorrespondents),
		joinOrNone(existingTypes),
		title,
		clip(content))

	raw, err := m.GenerateWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		return Suggestion{}, err
	}

	var suggestion Suggestion
	if err := parseJSONResponse(raw, &suggestion); err != nil {
		return Suggestion{}, fmt.Errorf("parse suggestion: %w", err)
	}
	return suggestion, nil
}

// Summarize produces a short plain-text summary of a document.
func (m *Model) Summarize(ctx context.Context, title, content string) (string, error) {
	systemPrompt := `You summarize archived documents. Write 2-4 plain sentences covering
what the document is, who it involves, key amounts or dates, and any action it
requires. No headings, no bullet points, no preamble.`

	userPrompt := fmt.Sprintf(`Document title: %s

Document text:
%s

Summary:`, title, clip(content))

	summary, err := m.GenerateWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

func clip(content string) string {
	if len(content) > maxContentChars {
		return content[:maxContentChars]
	}
	return content
}
