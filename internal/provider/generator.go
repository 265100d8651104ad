package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/alphas/policyrag-go/internal/rag"
)

// systemPrompt frames every generation call. The per-request context and
// question arrive in the user message built by the composer.
const systemPrompt = "You are a concise, accurate HR policy assistant. " +
	"Answer strictly from the policy excerpts provided in the user message."

// ChatGenerator adapts an eino ChatModel to the rag.Generator port.
// Safe for concurrent use.
type ChatGenerator struct {
	// chat is the underlying backend-specific model.
	chat model.ToolCallingChatModel
}

// NewChatGenerator wraps an already-constructed ChatModel.
func NewChatGenerator(chat model.ToolCallingChatModel) *ChatGenerator {
	return &ChatGenerator{chat: chat}
}

// NewGeneratorFromEnv builds a rag.Generator from MODEL_PROVIDER and the
// backend-specific env vars. Returns (nil, nil) when generation is not
// configured — the caller degrades to extractive answers.
func NewGeneratorFromEnv(ctx context.Context) (rag.Generator, error) {
	if !Enabled() {
		return nil, nil
	}
	chat, err := NewFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	return NewChatGenerator(chat), nil
}

// Generate produces an answer for the given prompt. Backend failures wrap
// rag.ErrGenerationUnavailable so callers can degrade instead of failing.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(prompt),
	}

	msg, err := g.chat.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("provider: generation request failed: %v: %w", err, rag.ErrGenerationUnavailable)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("provider: model returned empty response: %w", rag.ErrGenerationUnavailable)
	}

	return msg.Content, nil
}
