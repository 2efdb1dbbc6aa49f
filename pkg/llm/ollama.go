package llm

import (
	"context"
	"strings"
)

type OllamaProvider struct {
	openai *OpenAIProvider
}

func NewOllamaProvider(cfg Config) *OllamaProvider {
	cfgCopy := cfg
	if strings.TrimSpace(cfgCopy.APIURL) == "" {
		cfgCopy.APIURL = DefaultOllamaURL
	}
	if cfgCopy.APIKey == "" {
		// The OpenAI-compatible endpoint ignores the key but the client sends one.
		cfgCopy.APIKey = "ollama"
	}
	return &OllamaProvider{openai: NewOpenAIProvider(cfgCopy)}
}

func (p *OllamaProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	return p.openai.Chat(ctx, req)
}
