// Package config loads Paperflow configuration from an optional YAML file
// and environment variables. Environment variables win over the file; the
// file wins over built-in defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Config holds all configuration values.
type Config struct {
	// Paperless connection
	PaperlessURL   string
	PaperlessToken string
	MaxRetries     uint64

	// LLM
	LLMProvider     string
	LLMModel        string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string

	// Consolidation
	Threshold      float64
	BatchSize      int
	UpdateWorkers  int
	UseApproximate bool

	// Run history (SurrealDB, optional — empty URL disables it)
	HistoryURL       string
	HistoryNamespace string
	HistoryDatabase  string
	HistoryUser      string
	HistoryPass      string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load builds the configuration: defaults, then the config file (if any),
// then environment variables.
func Load() (Config, error) {
	cfg := defaults()

	path := configFilePath()
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func defaults() Config {
	return Config{
		PaperlessURL: "http://localhost:8000",
		MaxRetries:   3,

		LLMProvider: ProviderOllama,
		LLMModel:    "llama3.1",
		OllamaHost:  "http://localhost:11434",

		Threshold:     0.85,
		BatchSize:     1000,
		UpdateWorkers: 4,

		HistoryNamespace: "paperflow",
		HistoryDatabase:  "history",
		HistoryUser:      "root",
		HistoryPass:      "root",

		LogFile:  filepath.Join(os.TempDir(), "paperflow.log"),
		LogLevel: slog.LevelInfo,
	}
}

// configFilePath returns the config file to load: $PAPERFLOW_CONFIG if set,
// otherwise ~/.paperflow.yaml when it exists.
func configFilePath() string {
	if path := os.Getenv("PAPERFLOW_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".paperflow.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// fileConfig mirrors the YAML layout. Pointer fields distinguish "absent"
// from zero values.
type fileConfig struct {
	Paperless struct {
		URL        *string `yaml:"url"`
		Token      *string `yaml:"token"`
		MaxRetries *uint64 `yaml:"max_retries"`
	} `yaml:"paperless"`
	LLM struct {
		Provider     *string `yaml:"provider"`
		Model        *string `yaml:"model"`
		OpenAIKey    *string `yaml:"openai_api_key"`
		AnthropicKey *string `yaml:"anthropic_api_key"`
		OllamaHost   *string `yaml:"ollama_host"`
	} `yaml:"llm"`
	Consolidate struct {
		Threshold      *float64 `yaml:"threshold"`
		BatchSize      *int     `yaml:"batch_size"`
		UpdateWorkers  *int     `yaml:"update_workers"`
		UseApproximate *bool    `yaml:"use_approximate"`
	} `yaml:"consolidate"`
	History struct {
		URL       *string `yaml:"url"`
		Namespace *string `yaml:"namespace"`
		Database  *string `yaml:"database"`
		User      *string `yaml:"user"`
		Pass      *string `yaml:"pass"`
	} `yaml:"history"`
	Log struct {
		File  *string `yaml:"file"`
		Level *string `yaml:"level"`
	} `yaml:"log"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	setString(&cfg.PaperlessURL, fc.Paperless.URL)
	setString(&cfg.PaperlessToken, fc.Paperless.Token)
	if fc.Paperless.MaxRetries != nil {
		cfg.MaxRetries = *fc.Paperless.MaxRetries
	}

	setString(&cfg.LLMProvider, fc.LLM.Provider)
	setString(&cfg.LLMModel, fc.LLM.Model)
	setString(&cfg.OpenAIAPIKey, fc.LLM.OpenAIKey)
	setString(&cfg.AnthropicAPIKey, fc.LLM.AnthropicKey)
	setString(&cfg.OllamaHost, fc.LLM.OllamaHost)

	if fc.Consolidate.Threshold != nil {
		cfg.Threshold = *fc.Consolidate.Threshold
	}
	if fc.Consolidate.BatchSize != nil {
		cfg.BatchSize = *fc.Consolidate.BatchSize
	}
	if fc.Consolidate.UpdateWorkers != nil {
		cfg.UpdateWorkers = *fc.Consolidate.UpdateWorkers
	}
	if fc.Consolidate.UseApproximate != nil {
		cfg.UseApproximate = *fc.Consolidate.UseApproximate
	}

	setString(&cfg.HistoryURL, fc.History.URL)
	setString(&cfg.HistoryNamespace, fc.History.Namespace)
	setString(&cfg.HistoryDatabase, fc.History.Database)
	setString(&cfg.HistoryUser, fc.History.User)
	setString(&cfg.HistoryPass, fc.History.Pass)

	setString(&cfg.LogFile, fc.Log.File)
	if fc.Log.Level != nil {
		cfg.LogLevel = parseLogLevel(*fc.Log.Level)
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func applyEnv(cfg *Config) {
	envString(&cfg.PaperlessURL, "PAPERLESS_URL")
	envString(&cfg.PaperlessToken, "PAPERLESS_TOKEN")
	if v := os.Getenv("PAPERFLOW_MAX_RETRIES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.MaxRetries = n
		}
	}

	envString(&cfg.LLMProvider, "PAPERFLOW_LLM_PROVIDER")
	envString(&cfg.LLMModel, "PAPERFLOW_LLM_MODEL")
	envString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envString(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envString(&cfg.OllamaHost, "OLLAMA_HOST")

	if v := os.Getenv("PAPERFLOW_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Threshold = f
		}
	}
	if v := os.Getenv("PAPERFLOW_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("PAPERFLOW_UPDATE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.UpdateWorkers = n
		}
	}
	if v := os.Getenv("PAPERFLOW_USE_APPROXIMATE"); v != "" {
		cfg.UseApproximate = v == "true" || v == "1"
	}

	envString(&cfg.HistoryURL, "PAPERFLOW_HISTORY_URL")
	envString(&cfg.HistoryNamespace, "PAPERFLOW_HISTORY_NAMESPACE")
	envString(&cfg.HistoryDatabase, "PAPERFLOW_HISTORY_DATABASE")
	envString(&cfg.HistoryUser, "PAPERFLOW_HISTORY_USER")
	envString(&cfg.HistoryPass, "PAPERFLOW_HISTORY_PASS")

	envString(&cfg.LogFile, "PAPERFLOW_LOG_FILE")
	if v := os.Getenv("PAPERFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
