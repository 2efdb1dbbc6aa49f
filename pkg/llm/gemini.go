package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

type GeminiProvider struct {
	client *genai.Client
	cfg    Config
}

func NewGeminiProvider(cfg Config) (*GeminiProvider, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if url := strings.TrimSpace(cfg.APIURL); url != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: url}
	}
	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	return &GeminiProvider{client: client, cfg: cfg}, nil
}

func (p *GeminiProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.timeout())
	defer cancel()

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if mt := p.cfg.maxTokens(req.MaxTokens); mt > 0 {
		genCfg.MaxOutputTokens = int32(mt)
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			genCfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.cfg.Model, contents, genCfg)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return ChatResponse{}, ErrEmptyResponse
	}

	out := ChatResponse{Content: text, Model: p.cfg.Model}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}
