package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// DefaultSystemPrompt is the persona the Magma demos use
const DefaultSystemPrompt = "You are agent that can see, talk and act."

// Config holds provider and runtime settings read from the environment
type Config struct {
	Provider string `envconfig:"MAGMA_PROVIDER" default:"gradio"`

	GradioURL string  `envconfig:"GRADIO_URL" default:"http://127.0.0.1:7860/"`
	GradioRPS float64 `envconfig:"GRADIO_RPS" default:"0"`

	OllamaURL   string `envconfig:"OLLAMA_URL"`
	OllamaHost  string `envconfig:"OLLAMA_HOST"`
	OllamaModel string `envconfig:"OLLAMA_MODEL" default:"llava:13b"`

	OpenAIKey     string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o"`

	GeminiKey   string `envconfig:"GEMINI_API_KEY"`
	GeminiModel string `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`

	SystemPrompt string  `envconfig:"MAGMA_SYSTEM_PROMPT" default:"You are agent that can see, talk and act."`
	MaxNewTokens int     `envconfig:"MAGMA_MAX_NEW_TOKENS" default:"128"`
	Temperature  float64 `envconfig:"MAGMA_TEMPERATURE" default:"0"`

	UploadsDir string `envconfig:"MAGMA_UPLOADS_DIR" default:"uploads"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// OllamaBaseURL prefers OLLAMA_URL, then OLLAMA_HOST
func (c *Config) OllamaBaseURL() string {
	if c.OllamaURL != "" {
		return c.OllamaURL
	}
	if c.OllamaHost != "" {
		return c.OllamaHost
	}
	return "http://localhost:11434"
}

// DefaultModel returns the configured model for a provider. The gradio
// demo serves a single model, so it has none.
func (c *Config) DefaultModel(provider string) string {
	switch provider {
	case "ollama":
		return c.OllamaModel
	case "openai":
		return c.OpenAIModel
	case "gemini":
		return c.GeminiModel
	default:
		return ""
	}
}
