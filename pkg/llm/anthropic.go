package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

type AnthropicProvider struct {
	client anthropic.Client
	cfg    Config
}

func NewAnthropicProvider(cfg Config) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.timeout()),
		option.WithMaxRetries(0),
	}
	if url := strings.TrimSpace(cfg.APIURL); url != "" {
		opts = append(opts, option.WithBaseURL(url))
	}
	if cfg.Model == "" {
		cfg.Model = defaultAnthropicModel
	}
	return &AnthropicProvider{client: anthropic.NewClient(opts...), cfg: cfg}
}

func (p *AnthropicProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := p.cfg.maxTokens(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.cfg.Model),
		MaxTokens:   int64(maxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if len(system) > 0 {
		params.System = system
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}

	var content strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(text.Text)
		}
	}
	if content.Len() == 0 {
		return ChatResponse{}, ErrEmptyResponse
	}

	in, out := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	return ChatResponse{
		Content: content.String(),
		Model:   string(msg.Model),
		Usage:   Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
	}, nil
}
