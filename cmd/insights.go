package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dataqual-cli/internal/ai"
	"github.com/KaramelBytes/dataqual-cli/internal/ingest"
	"github.com/KaramelBytes/dataqual-cli/internal/utils"
)

var (
	insIngest      ingestFlags
	insProvider    string
	insModel       string
	insOllamaHost  string
	insTimeoutSec  int
	insSampleRows  int
	insDryRun      bool
	insBudgetLimit float64
	insFormat      string
	insOutputPath  string
)

var insightsCmd = &cobra.Command{
	Use:   "insights <file>",
	Short: "Analyze a file and ask an AI provider for insights",
	Example: `  dataqual insights sales.csv
  dataqual insights sales.csv --provider openrouter --model anthropic/claude-3-haiku
  dataqual insights sales.csv --provider ollama --ollama-host http://127.0.0.1:11434
  dataqual insights sales.csv --dry-run --budget-limit 0.01`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		ds, rep, err := loadDataset(args[0], &insIngest, c)
		if err != nil {
			return err
		}
		in, provider, err := newInsighter(c, runtimeOptions{
			Provider:   insProvider,
			Model:      insModel,
			OllamaHost: insOllamaHost,
			TimeoutSec: insTimeoutSec,
		})
		if err != nil {
			return err
		}
		sample := ingest.Sample(ds, sampleRows(c, insSampleRows))
		w := cmd.OutOrStdout()

		req := in.Request(rep, sample)
		var prompt strings.Builder
		for _, m := range req.Messages {
			prompt.WriteString(m.Content)
			prompt.WriteString("\n")
		}
		tokens := utils.CountTokens(prompt.String())
		fmt.Fprintf(w, "Provider: %s, model: %s\n", provider, in.Model)
		fmt.Fprintf(w, "Tokens: prompt≈%d, max output %d\n", tokens, in.MaxTokens)

		var estCost float64
		if mi, ok := ai.LookupModel(in.Model); ok {
			if tokens+in.MaxTokens > mi.ContextTokens {
				fmt.Fprintf(w, "⚠ Prompt (%d tokens) + max-tokens (%d) exceeds %s context window (~%d tokens).\n",
					tokens, in.MaxTokens, mi.Name, mi.ContextTokens)
			}
			if cost, ok := ai.EstimateCostUSD(in.Model, tokens, in.MaxTokens); ok {
				estCost = cost
				fmt.Fprintf(w, "Estimated max cost: ~$%.4f (in %.5f/out %.5f per 1K tokens)\n", cost, mi.InputPerK, mi.OutputPerK)
			}
		}
		if err := enforceBudget(estCost, insBudgetLimit); err != nil {
			return err
		}
		if insDryRun {
			fmt.Fprintln(w, "✓ Dry run: no request sent")
			return nil
		}

		res := in.Generate(cmd.Context(), rep, sample)
		if res.Unavailable() {
			return insightError(res.Err, provider, in.Model)
		}
		if res.RequestID != "" {
			fmt.Fprintf(w, "Request ID: %s\n", res.RequestID)
		}
		if res.Usage.TotalTokens > 0 {
			fmt.Fprintf(w, "Usage: %d prompt + %d completion tokens\n", res.Usage.PromptTokens, res.Usage.CompletionTokens)
		}

		var data []byte
		switch strings.ToLower(insFormat) {
		case "", "markdown", "md":
			data = []byte(fmt.Sprintf("# Insights: %s\n\n%s", filepath.Base(args[0]), res.Insights.Markdown()))
		case "json":
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			data = append(b, '\n')
		default:
			return fmt.Errorf("unsupported --format: %s (use markdown|json)", insFormat)
		}
		if err := utils.WriteOutput(w, insOutputPath, data); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		if insOutputPath != "" && insOutputPath != "-" {
			fmt.Fprintf(w, "✓ Wrote insights to %s\n", insOutputPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(insightsCmd)
	insIngest.bind(insightsCmd.Flags())
	insightsCmd.Flags().StringVar(&insProvider, "provider", "", "AI provider: openai|openrouter|ollama (default from config)")
	insightsCmd.Flags().StringVar(&insModel, "model", "", "model name (default per provider)")
	insightsCmd.Flags().StringVar(&insOllamaHost, "ollama-host", "", "Ollama host URL")
	insightsCmd.Flags().IntVar(&insTimeoutSec, "timeout-sec", 0, "overall insight timeout in seconds")
	insightsCmd.Flags().IntVar(&insSampleRows, "sample-rows", 0, "rows sent as a data preview")
	insightsCmd.Flags().BoolVar(&insDryRun, "dry-run", false, "print token and cost estimates without calling the provider")
	insightsCmd.Flags().Float64Var(&insBudgetLimit, "budget-limit", 0, "fail if estimated max cost (USD) exceeds this budget")
	insightsCmd.Flags().StringVar(&insFormat, "format", "markdown", "output format: markdown|json")
	insightsCmd.Flags().StringVarP(&insOutputPath, "output", "o", "", "write insights to this file instead of stdout")
}
