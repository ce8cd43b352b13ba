package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/dataqual-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set dataqual configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "api_key: %s\n", mask(cfg.APIKey))
		fmt.Fprintf(w, "default_provider: %s\n", cfg.DefaultProvider)
		fmt.Fprintf(w, "default_model: %s\n", cfg.Model(cfg.DefaultProvider))
		fmt.Fprintf(w, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(w, "temperature: %.3f\n", cfg.Temperature)
		if cfg.OllamaHost != "" {
			fmt.Fprintf(w, "ollama_host: %s\n", cfg.OllamaHost)
		}
		fmt.Fprintf(w, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(w, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Fprintf(w, "insights_timeout_sec: %d\n", cfg.InsightsTimeoutSec)
		fmt.Fprintf(w, "insights_sample_rows: %d\n", cfg.InsightsSampleRows)
		fmt.Fprintf(w, "insights_rate_per_min: %d\n", cfg.InsightsRatePerMin)
		fmt.Fprintf(w, "history_backend: %s\n", cfg.HistoryBackend)
		if cfg.HistoryPath != "" {
			fmt.Fprintf(w, "history_path: %s\n", cfg.HistoryPath)
		}
		fmt.Fprintf(w, "server_addr: %s\n", cfg.ServerAddr)
		fmt.Fprintf(w, "max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Fprintf(w, "cors_origins: %s\n", strings.Join(cfg.CORSOrigins, ","))
		fmt.Fprintf(w, "default_table: %s\n", cfg.DefaultTable)
		p := cfg.Policy
		fmt.Fprintf(w, "policy: sample_size=%d iqr_multiplier=%g top_values_limit=%d\n",
			p.SampleSize, p.IQRMultiplier, p.TopValuesLimit)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Example: `  dataqual config set default_provider openrouter
  dataqual config set history_backend sqlite
  dataqual config set cors_origins http://localhost:3000,https://app.example.com`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := cfg.Set(key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
