package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paperflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PAPERFLOW_CONFIG", writeConfigFile(t, ""))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.PaperlessURL)
	assert.Equal(t, ProviderOllama, cfg.LLMProvider)
	assert.Equal(t, 0.85, cfg.Threshold)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, 4, cfg.UpdateWorkers)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.HistoryURL, "history is off by default")
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("PAPERFLOW_CONFIG", writeConfigFile(t, `
paperless:
  url: https://docs.example.com
  token: file-token
llm:
  provider: openai
  model: gpt-4o-mini
consolidate:
  threshold: 0.9
  use_approximate: true
log:
  level: debug
`))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://docs.example.com", cfg.PaperlessURL)
	assert.Equal(t, "file-token", cfg.PaperlessToken)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	assert.Equal(t, 0.9, cfg.Threshold)
	assert.True(t, cfg.UseApproximate)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)

	// Untouched values keep their defaults.
	assert.Equal(t, 1000, cfg.BatchSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("PAPERFLOW_CONFIG", writeConfigFile(t, `
paperless:
  url: https://from-file.example.com
consolidate:
  threshold: 0.7
`))
	t.Setenv("PAPERLESS_URL", "https://from-env.example.com")
	t.Setenv("PAPERLESS_TOKEN", "env-token")
	t.Setenv("PAPERFLOW_THRESHOLD", "0.95")
	t.Setenv("PAPERFLOW_BATCH_SIZE", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://from-env.example.com", cfg.PaperlessURL)
	assert.Equal(t, "env-token", cfg.PaperlessToken)
	assert.Equal(t, 0.95, cfg.Threshold)
	assert.Equal(t, 250, cfg.BatchSize)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	t.Setenv("PAPERFLOW_CONFIG", writeConfigFile(t, "paperless: [not a mapping"))

	_, err := Load()
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
