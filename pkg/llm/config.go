package llm

import (
	"fmt"
	"strings"
	"time"

	"tastesync/pkg/config"
)

const (
	DefaultTogetherURL   = "https://api.together.xyz/v1"
	DefaultTogetherModel = "meta-llama/Llama-3.3-70B-Instruct-Turbo"
	DefaultOllamaURL     = "http://localhost:11434/v1"
	DefaultTimeout       = 60 * time.Second
)

type Config struct {
	Provider  string
	Model     string
	APIKey    string
	APIURL    string
	MaxTokens int
	Timeout   time.Duration
}

func LoadConfig() Config {
	return Config{
		Provider:  config.GetEnv("LLM_PROVIDER", "together"),
		Model:     config.GetEnv("LLM_MODEL", ""),
		APIKey:    config.GetEnv("LLM_API_KEY", config.GetEnv("TOGETHER_API_KEY", "")),
		APIURL:    config.GetEnv("LLM_API_URL", ""),
		MaxTokens: config.GetEnvInt("LLM_MAX_TOKENS", 0),
		Timeout:   config.GetEnvDuration("LLM_TIMEOUT", DefaultTimeout),
	}
}

// NewChatModel builds the provider named by cfg.Provider.
func NewChatModel(cfg Config) (ChatModel, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "together", "":
		if cfg.APIURL == "" {
			cfg.APIURL = DefaultTogetherURL
		}
		if cfg.Model == "" {
			cfg.Model = DefaultTogetherModel
		}
		return NewOpenAIProvider(cfg), nil
	case "openai":
		return NewOpenAIProvider(cfg), nil
	case "ollama":
		return NewOllamaProvider(cfg), nil
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	case "gemini":
		return NewGeminiProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// maxTokens lets a deployment-wide ceiling lower what a caller asks for.
func (c Config) maxTokens(requested int) int {
	if c.MaxTokens > 0 && (requested <= 0 || requested > c.MaxTokens) {
		return c.MaxTokens
	}
	return requested
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}
