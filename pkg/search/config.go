package search

import (
	"fmt"
	"strings"
	"time"

	"tastesync/pkg/config"
)

const (
	providerTavily  = "tavily"
	providerBrave   = "brave"
	providerSearxng = "searxng"

	defaultTimeout = 15 * time.Second
)

// Config holds environment configuration for search providers.
type Config struct {
	Provider string
	APIKey   string
	APIURL   string
	Timeout  time.Duration
}

// LoadConfig loads search configuration from the environment.
func LoadConfig() Config {
	return Config{
		Provider: config.GetEnv("SEARCH_PROVIDER", providerTavily),
		APIKey:   config.GetEnv("SEARCH_API_KEY", config.GetEnv("TAVILY_API_KEY", "")),
		APIURL:   config.GetEnv("SEARCH_API_URL", ""),
		Timeout:  config.GetEnvDuration("SEARCH_TIMEOUT", defaultTimeout),
	}
}

// NewProvider creates a search provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case providerTavily:
		return NewTavilyProvider(cfg.APIKey, cfg.APIURL, cfg.Timeout)
	case providerBrave:
		return NewBraveProvider(cfg.APIKey, cfg.APIURL, cfg.Timeout)
	case providerSearxng:
		return NewSearxngProvider(cfg.APIURL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", cfg.Provider)
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return defaultTimeout
}
