package ai

import "sort"

// Model metadata and simple pricing helpers for --dry-run estimates.
// Prices are illustrative and should be verified against provider docs.

type ModelInfo struct {
	Name          string  `json:"name"`
	ContextTokens int     `json:"contextTokens"` // approximate context window
	InputPerK     float64 `json:"inputPerK"`     // USD per 1K input tokens
	OutputPerK    float64 `json:"outputPerK"`    // USD per 1K output tokens
}

var models = map[string]ModelInfo{
	"gpt-4o-mini":                      {Name: "gpt-4o-mini", ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
	"gpt-4o":                           {Name: "gpt-4o", ContextTokens: 128000, InputPerK: 0.0025, OutputPerK: 0.01},
	"openai/gpt-4o-mini":               {Name: "openai/gpt-4o-mini", ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
	"openai/gpt-4o":                    {Name: "openai/gpt-4o", ContextTokens: 128000, InputPerK: 0.0025, OutputPerK: 0.01},
	"anthropic/claude-3.5-sonnet":      {Name: "anthropic/claude-3.5-sonnet", ContextTokens: 200000, InputPerK: 0.003, OutputPerK: 0.015},
	"anthropic/claude-3-haiku":         {Name: "anthropic/claude-3-haiku", ContextTokens: 200000, InputPerK: 0.00025, OutputPerK: 0.00125},
	"google/gemini-1.5-flash":          {Name: "google/gemini-1.5-flash", ContextTokens: 1000000, InputPerK: 0.0002, OutputPerK: 0.0008},
	"deepseek/deepseek-r1:free":        {Name: "deepseek/deepseek-r1:free", ContextTokens: 128000},
	"meta-llama/llama-3.1-8b-instruct": {Name: "meta-llama/llama-3.1-8b-instruct", ContextTokens: 131072},
	"llama3.1:8b-instruct":             {Name: "llama3.1:8b-instruct", ContextTokens: 8192},
	"mistral:7b-instruct":              {Name: "mistral:7b-instruct", ContextTokens: 8192},
}

// default model per provider
var defaultModels = map[string]string{
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderOpenRouter: "openai/gpt-4o-mini",
	ProviderOllama:     "llama3.1:8b-instruct",
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// DefaultModel returns the model used for a provider when none is configured.
func DefaultModel(provider string) string {
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return defaultModels[ProviderOpenAI]
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// Catalog returns the known models sorted by name.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, mi := range models {
		out = append(out, mi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
