package llm

import (
	"context"
	"errors"
)

// Message roles accepted by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("llm: empty completion")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single non-streaming completion call.
type ChatRequest struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type ChatResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// ChatModel is the hosted chat-completion capability injected into agents.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// ChatFunc adapts a plain function to ChatModel.
type ChatFunc func(ctx context.Context, req ChatRequest) (ChatResponse, error)

func (f ChatFunc) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	return f(ctx, req)
}

// System and User build the two-message prompt every agent sends.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

func User(content string) Message { return Message{Role: RoleUser, Content: content} }
