package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/dataqual-cli/internal/ai"
	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
)

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	InsightsTimeoutSec int `mapstructure:"insights_timeout_sec" yaml:"insights_timeout_sec"`
	InsightsSampleRows int `mapstructure:"insights_sample_rows" yaml:"insights_sample_rows"`
	InsightsRatePerMin int `mapstructure:"insights_rate_per_min" yaml:"insights_rate_per_min"`

	// History: memory, file or sqlite
	HistoryBackend string `mapstructure:"history_backend" yaml:"history_backend"`
	HistoryPath    string `mapstructure:"history_path" yaml:"history_path"`

	ServerAddr   string   `mapstructure:"server_addr" yaml:"server_addr"`
	MaxUploadMB  int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	CORSOrigins  []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	DefaultTable string   `mapstructure:"default_table" yaml:"default_table"`

	Policy analysis.Policy `mapstructure:"policy" yaml:"policy"`

	// set when APIKey came from OPENAI_API_KEY/OPENROUTER_API_KEY
	keyFromEnv bool
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dataqual/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	out := *c
	if out.keyFromEnv {
		out.APIKey = ""
	}
	b, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A .env file in the working
// directory is read first and never overrides variables already set.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DATAQUAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.APIKey == "" {
		c.APIKey = apiKeyFromEnv(c.DefaultProvider)
		c.keyFromEnv = c.APIKey != ""
	}
	if c.HistoryPath == "" && c.HistoryBackend != "memory" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		name := "history.json"
		if c.HistoryBackend == "sqlite" {
			name = "history.db"
		}
		c.HistoryPath = filepath.Join(dir, name)
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("default_provider", ai.ProviderOpenAI)
	v.SetDefault("default_model", "")
	v.SetDefault("max_tokens", ai.DefaultInsightMaxTokens)
	v.SetDefault("temperature", ai.DefaultInsightTemperature)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", ai.DefaultOllamaHost)

	v.SetDefault("insights_timeout_sec", int(ai.DefaultInsightTimeout/time.Second))
	v.SetDefault("insights_sample_rows", ai.DefaultSampleRows)
	v.SetDefault("insights_rate_per_min", 10)
	v.SetDefault("history_backend", "file")
	v.SetDefault("history_path", "")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("max_upload_mb", 50)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("default_table", "your_table")

	// registering every policy key lets env overrides reach Unmarshal
	p := analysis.DefaultPolicy()
	v.SetDefault("policy.sample_size", p.SampleSize)
	v.SetDefault("policy.type_confidence", p.TypeConfidence)
	v.SetDefault("policy.top_values_limit", p.TopValuesLimit)
	v.SetDefault("policy.iqr_multiplier", p.IQRMultiplier)
	v.SetDefault("policy.outlier_min_percent", p.OutlierMinPercent)
	v.SetDefault("policy.outlier_high_percent", p.OutlierHighPercent)
	v.SetDefault("policy.long_text_avg_length", p.LongTextAvgLength)
	v.SetDefault("policy.mixed_type_lower_percent", p.MixedTypeLowerPercent)
	v.SetDefault("policy.mixed_type_upper_percent", p.MixedTypeUpperPercent)
	v.SetDefault("policy.high_cardinality_percent", p.HighCardinalityPercent)
	v.SetDefault("policy.excessive_missing_percent", p.ExcessiveMissingPercent)
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	dir := filepath.Join(home, ".dataqual")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir config dir: %w", err)
	}
	return dir, nil
}

// apiKeyFromEnv checks the provider's conventional variable first.
func apiKeyFromEnv(provider string) string {
	order := []string{"OPENAI_API_KEY", "OPENROUTER_API_KEY"}
	if provider == ai.ProviderOpenRouter {
		order = []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY"}
	}
	for _, k := range order {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// Model returns the configured model or the provider default.
func (c *Global) Model(provider string) string {
	if c.DefaultModel != "" && provider == c.DefaultProvider {
		return c.DefaultModel
	}
	return ai.DefaultModel(provider)
}

// RuntimeConfig maps the HTTP and retry knobs onto ai.RuntimeConfig.
func (c *Global) RuntimeConfig() ai.RuntimeConfig {
	return ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		APIKey:      c.APIKey,
		Host:        c.OllamaHost,
	}
}

// Set assigns one key from its string form, as used by `config set`.
func (c *Global) Set(key, val string) error {
	switch key {
	case "api_key":
		c.APIKey = val
		c.keyFromEnv = false
	case "default_model":
		c.DefaultModel = val
	case "default_provider":
		p := strings.ToLower(strings.TrimSpace(val))
		if p == "local" {
			p = ai.ProviderOllama
		}
		if _, ok := ai.GetRuntime(p, ai.RuntimeConfig{}); !ok {
			return fmt.Errorf("invalid default_provider: %s (use %s)", val, strings.Join(ai.Providers(), ", "))
		}
		c.DefaultProvider = p
	case "ollama_host":
		c.OllamaHost = val
	case "history_backend":
		switch val {
		case "memory", "file", "sqlite":
			c.HistoryBackend = val
		default:
			return fmt.Errorf("invalid history_backend: %s (use memory, file or sqlite)", val)
		}
	case "history_path":
		c.HistoryPath = val
	case "server_addr":
		c.ServerAddr = val
	case "default_table":
		c.DefaultTable = val
	case "cors_origins":
		c.CORSOrigins = splitList(val)
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for temperature: %w", err)
		}
		c.Temperature = f
	default:
		return c.setInt(key, val)
	}
	return nil
}

func (c *Global) setInt(key, val string) error {
	fields := map[string]*int{
		"max_tokens":            &c.MaxTokens,
		"http_timeout_sec":      &c.HTTPTimeoutSec,
		"retry_max_attempts":    &c.RetryMaxAttempts,
		"retry_base_delay_ms":   &c.RetryBaseDelayMs,
		"retry_max_delay_ms":    &c.RetryMaxDelayMs,
		"insights_timeout_sec":  &c.InsightsTimeoutSec,
		"insights_sample_rows":  &c.InsightsSampleRows,
		"insights_rate_per_min": &c.InsightsRatePerMin,
		"max_upload_mb":         &c.MaxUploadMB,
	}
	dst, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown key: %s", key)
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return fmt.Errorf("invalid int for %s: %v", key, val)
	}
	*dst = i
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
