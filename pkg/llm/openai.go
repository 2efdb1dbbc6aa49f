package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider speaks the OpenAI chat-completions protocol. Together and
// Ollama expose the same API, so they reuse it with a different base URL.
type OpenAIProvider struct {
	client *openai.Client
	cfg    Config
}

func NewOpenAIProvider(cfg Config) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if url := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"); url != "" {
		clientCfg.BaseURL = url
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.timeout()}
	return &OpenAIProvider{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}
}

func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Messages:    messages,
		MaxTokens:   p.cfg.maxTokens(req.MaxTokens),
		Temperature: req.Temperature,
	})
	if err != nil {
		return ChatResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ChatResponse{}, ErrEmptyResponse
	}

	return ChatResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
