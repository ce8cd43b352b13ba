package ai

import "context"

// Runtime is a text-generation backend such as OpenAI, OpenRouter or a
// local Ollama.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// RuntimeFunc adapts a function to Runtime.
type RuntimeFunc func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

func (f RuntimeFunc) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	return f(ctx, req)
}
