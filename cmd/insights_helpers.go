package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/KaramelBytes/dataqual-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/dataqual-cli/internal/config"
)

type runtimeOptions struct {
	Provider   string
	Model      string
	OllamaHost string
	TimeoutSec int
}

func resolveProvider(c *cfgpkg.Global, flag string) string {
	name := strings.ToLower(strings.TrimSpace(flag))
	if name == "" && c != nil {
		name = strings.ToLower(c.DefaultProvider)
	}
	switch name {
	case "":
		return ai.ProviderOpenAI
	case "local":
		return ai.ProviderOllama
	case "anthropic", "google", "gemini", "meta", "llama":
		return ai.ProviderOpenRouter
	}
	return name
}

func buildRuntime(c *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	rc := ai.RuntimeConfig{
		HTTPTimeout: 60 * time.Second,
		RetryMax:    3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
	}
	if c != nil {
		got := c.RuntimeConfig()
		if got.HTTPTimeout > 0 {
			rc.HTTPTimeout = got.HTTPTimeout
		}
		if got.RetryMax > 0 {
			rc.RetryMax = got.RetryMax
		}
		if got.BaseDelay > 0 {
			rc.BaseDelay = got.BaseDelay
		}
		if got.MaxDelay > 0 {
			rc.MaxDelay = got.MaxDelay
		}
		rc.APIKey = got.APIKey
		rc.Host = got.Host
	}

	provider := resolveProvider(c, opts.Provider)
	switch provider {
	case ai.ProviderOpenAI:
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			rc.APIKey = v
		}
	case ai.ProviderOpenRouter:
		if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
			rc.APIKey = v
		}
	case ai.ProviderOllama:
		if h := strings.TrimSpace(opts.OllamaHost); h != "" {
			rc.Host = h
		}
		if rc.Host == "" {
			rc.Host = ai.DefaultOllamaHost
		}
	}

	rt, ok := ai.GetRuntime(provider, rc)
	if !ok {
		return nil, provider, fmt.Errorf("provider not supported: %s (use %s)", provider, strings.Join(ai.Providers(), ", "))
	}
	return rt, provider, nil
}

// newInsighter wires a runtime and the configured generation settings.
func newInsighter(c *cfgpkg.Global, opts runtimeOptions) (*ai.Insighter, string, error) {
	rt, provider, err := buildRuntime(c, opts)
	if err != nil {
		return nil, provider, err
	}
	model := opts.Model
	if model == "" {
		model = c.Model(provider)
	}
	in := ai.NewInsighter(rt, model)
	if c.MaxTokens > 0 {
		in.MaxTokens = c.MaxTokens
	}
	if c.Temperature > 0 {
		in.Temperature = c.Temperature
	}
	switch {
	case opts.TimeoutSec > 0:
		in.Timeout = time.Duration(opts.TimeoutSec) * time.Second
	case c.InsightsTimeoutSec > 0:
		in.Timeout = time.Duration(c.InsightsTimeoutSec) * time.Second
	}
	log.WithField("provider", provider).WithField("model", model).Debug("insighter ready")
	return in, provider, nil
}

func enforceBudget(estCost, limit float64) error {
	if limit > 0 && estCost > 0 && estCost > limit {
		return fmt.Errorf("estimated cost ~$%.4f exceeds budget limit ~$%.4f", estCost, limit)
	}
	return nil
}

// insightError turns a failed insight result into an actionable message.
func insightError(err error, provider, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		return fmt.Errorf("no API key: set OPENAI_API_KEY or OPENROUTER_API_KEY, or run 'dataqual config set api_key <key>': %w", err)
	case errors.As(err, &unreach):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct (DATAQUAL_OLLAMA_HOST or config 'ollama_host'). Detail: %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: check the API key for %s: %w", provider, err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model. %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name with 'dataqual models': %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try fewer --sample-rows or a smaller max_tokens: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	}
	return err
}
