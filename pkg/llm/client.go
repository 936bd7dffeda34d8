package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

var ErrEmptyResponse = errors.New("language model returned no content")

// CompletionService produces a single text response for a system instruction
// and a prompt.
type CompletionService interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// LangchainClient adapts any langchaingo model to CompletionService.
type LangchainClient struct {
	model       llms.Model
	temperature float64
}

func NewLangchainClient(model llms.Model, temperature float64) *LangchainClient {
	return &LangchainClient{model: model, temperature: temperature}
}

// NewOllamaClient connects to an ollama server through langchaingo.
func NewOllamaClient(serverURL, model string, temperature float64) (*LangchainClient, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	m, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return NewLangchainClient(m, temperature), nil
}

func (c *LangchainClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	resp, err := c.model.GenerateContent(ctx, messages, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
