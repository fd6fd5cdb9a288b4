package config

import (
	"fmt"
	"time"

	coreconfig "github.com/go-core-fx/config"
)

const (
	OCRProviderOpenRouter = "openrouter"
	OCRProviderGemini     = "gemini"
)

type Config struct {
	XTSBaseURL  string        `koanf:"xts_base_url"`
	XTSDatabase string        `koanf:"xts_database"`
	XTSUsername string        `koanf:"xts_username"`
	XTSPassword string        `koanf:"xts_password"`
	PageSize    int           `koanf:"page_size"`
	OCRProvider string        `koanf:"ocr_provider"`
	LLMBaseURL  string        `koanf:"llm_base_url"`
	LLMAPIKey   string        `koanf:"llm_api_key"`
	LLMModel    string        `koanf:"llm_model"`
	GeminiKey   string        `koanf:"gemini_api_key"`
	GeminiModel string        `koanf:"gemini_model"`
	SessionDB   string        `koanf:"session_db"`
	SessionKey  string        `koanf:"session_key"`
	Timeout     time.Duration `koanf:"timeout"`
	LogFile     string        `koanf:"log_file"`
	Debug       bool          `koanf:"debug"`
}

func New() (Config, error) {
	cfg := Config{
		PageSize:    20,
		OCRProvider: OCRProviderOpenRouter,
		SessionDB:   "./trade-console.db",
		Timeout:     30 * time.Second,
		LogFile:     "./trade-console.log",
		Debug:       false,
	}

	if err := coreconfig.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a request.
func (c Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	switch c.OCRProvider {
	case "", OCRProviderOpenRouter, OCRProviderGemini:
	default:
		return fmt.Errorf("unknown ocr_provider %q", c.OCRProvider)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}
