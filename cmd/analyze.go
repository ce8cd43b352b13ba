package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/dataqual-cli/internal/ai"
	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/dataqual-cli/internal/config"
	"github.com/KaramelBytes/dataqual-cli/internal/history"
	"github.com/KaramelBytes/dataqual-cli/internal/ingest"
	"github.com/KaramelBytes/dataqual-cli/internal/suggest"
	"github.com/KaramelBytes/dataqual-cli/internal/utils"
)

// ingestFlags are the parsing flags shared by analyze, analyze-batch,
// suggest and insights.
type ingestFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	maxRows    int
}

func (f *ingestFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',', ';', '|' or 'tab' (default: sniffed)")
	fs.StringVar(&f.decimal, "decimal", "", "decimal separator: '.' or 'comma'")
	fs.StringVar(&f.thousands, "thousands", "", "thousands separator: ',', '.' or 'space'")
	fs.StringVar(&f.sheetName, "sheet-name", "", "XLSX sheet name")
	fs.IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX sheet index (1-based), used when --sheet-name is empty")
	fs.IntVar(&f.maxRows, "max-rows", 0, "fail when the file has more data rows than this (0 = unlimited)")
}

func (f *ingestFlags) options() (ingest.Options, error) {
	opt := ingest.DefaultOptions()
	opt.SheetName = f.sheetName
	if f.sheetIndex > 0 {
		opt.SheetIndex = f.sheetIndex
	}
	if f.maxRows > 0 {
		opt.MaxRows = f.maxRows
	}
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|", "pipe":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(f.thousands) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	if opt.DecimalSeparator != 0 && opt.DecimalSeparator == opt.ThousandsSeparator {
		return opt, fmt.Errorf("--decimal and --thousands must differ")
	}
	return opt, nil
}

// loadDataset reads and analyzes one file with the configured policy.
func loadDataset(path string, f *ingestFlags, c *cfgpkg.Global) (*analysis.Dataset, *analysis.Report, error) {
	opt, err := f.options()
	if err != nil {
		return nil, nil, err
	}
	ds, err := ingest.ReadFile(path, opt)
	if err != nil {
		return nil, nil, err
	}
	rep, err := analysis.AnalyzeWithPolicy(ds, c.Policy)
	if err != nil {
		return nil, nil, fmt.Errorf("analyze %s: %w", filepath.Base(path), err)
	}
	log.WithField("file", path).WithField("rows", rep.Summary.TotalRows).Debug("analyzed")
	return ds, rep, nil
}

func openHistory(c *cfgpkg.Global) (history.Store, func(), error) {
	store, err := history.Open(c.HistoryBackend, c.HistoryPath)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {}
	if cl, ok := store.(io.Closer); ok {
		closeFn = func() { _ = cl.Close() }
	}
	return store, closeFn, nil
}

type namedReport struct {
	name string
	rep  *analysis.Report
}

// recordHistory is best effort: failures only warn.
func recordHistory(c *cfgpkg.Global, entries []namedReport) {
	store, closeFn, err := openHistory(c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: history unavailable: %v\n", err)
		return
	}
	defer closeFn()
	for _, e := range entries {
		if _, err := store.Record(e.name, e.rep); err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: failed to record history for %s: %v\n", e.name, err)
		}
	}
}

func tableName(c *cfgpkg.Global, flag string) string {
	switch {
	case flag != "":
		return flag
	case c.DefaultTable != "":
		return c.DefaultTable
	}
	return suggest.DefaultTable
}

func sampleRows(c *cfgpkg.Global, flag int) int {
	if flag > 0 {
		return flag
	}
	if c.InsightsSampleRows > 0 {
		return c.InsightsSampleRows
	}
	return ai.DefaultSampleRows
}

// analysisOutput is the --format json document.
type analysisOutput struct {
	FileName    string               `json:"fileName"`
	Analysis    *analysis.Report     `json:"analysis"`
	Suggestions []suggest.Suggestion `json:"suggestions,omitempty"`
	Insights    *ai.InsightResult    `json:"insights,omitempty"`
}

func renderAnalysis(format string, out analysisOutput) ([]byte, error) {
	var appendix []string
	if len(out.Suggestions) > 0 {
		appendix = append(appendix, "## Cleanup suggestions\n\n"+suggest.Markdown(out.Suggestions))
	}
	if out.Insights != nil {
		if out.Insights.Unavailable() {
			appendix = append(appendix, fmt.Sprintf("## AI insights\n\n_%v_\n", out.Insights.Err))
		} else {
			appendix = append(appendix, out.Insights.Insights.Markdown())
		}
	}
	switch strings.ToLower(format) {
	case "", "markdown", "md":
		var b strings.Builder
		b.WriteString(out.Analysis.Markdown(out.FileName))
		for _, a := range appendix {
			b.WriteString("\n" + a)
		}
		return []byte(b.String()), nil
	case "json":
		data, err := utils.PrettyJSON(out)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "html":
		return out.Analysis.RenderHTML(out.FileName, appendix...), nil
	}
	return nil, fmt.Errorf("unsupported --format: %s (use markdown|json|html)", format)
}

var (
	anaIngest     ingestFlags
	anaFormat     string
	anaOutputPath string
	anaSuggest    bool
	anaTable      string
	anaInsights   bool
	anaProvider   string
	anaModel      string
	anaSampleRows int
	anaNoHistory  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Profile a CSV/TSV/XLSX/JSON file and score its quality",
	Example: `  dataqual analyze sales.csv
  dataqual analyze sales.csv --format json -o report.json
  dataqual analyze eu.csv --delimiter ';' --decimal comma --thousands .
  dataqual analyze book.xlsx --sheet-name Orders --suggest --table orders
  dataqual analyze sales.csv --insights --format html -o report.html`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		c := currentConfig()
		ds, rep, err := loadDataset(path, &anaIngest, c)
		if err != nil {
			return err
		}
		name := filepath.Base(path)
		if !anaNoHistory {
			recordHistory(c, []namedReport{{name, rep}})
		}

		out := analysisOutput{FileName: name, Analysis: rep}
		if anaSuggest {
			out.Suggestions = suggest.Generate(rep, tableName(c, anaTable))
		}
		if anaInsights {
			in, _, err := newInsighter(c, runtimeOptions{Provider: anaProvider, Model: anaModel})
			if err != nil {
				return err
			}
			res := in.Generate(cmd.Context(), rep, ingest.Sample(ds, sampleRows(c, anaSampleRows)))
			if res.Unavailable() {
				fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", res.Err)
			}
			out.Insights = &res
		}

		data, err := renderAnalysis(anaFormat, out)
		if err != nil {
			return err
		}
		if err := utils.WriteOutput(cmd.OutOrStdout(), anaOutputPath, data); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		if anaOutputPath != "" && anaOutputPath != "-" {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s (quality score %d/100)\n", anaOutputPath, rep.QualityScore)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaIngest.bind(analyzeCmd.Flags())
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "markdown", "output format: markdown|json|html")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the report to this file instead of stdout")
	analyzeCmd.Flags().BoolVar(&anaSuggest, "suggest", false, "append SQL cleanup suggestions")
	analyzeCmd.Flags().StringVar(&anaTable, "table", "", "table name used in suggested SQL (default from config)")
	analyzeCmd.Flags().BoolVar(&anaInsights, "insights", false, "ask the configured AI provider for insights")
	analyzeCmd.Flags().StringVar(&anaProvider, "provider", "", "AI provider for --insights: openai|openrouter|ollama")
	analyzeCmd.Flags().StringVar(&anaModel, "model", "", "model for --insights")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 0, "rows sent to the AI provider as a preview")
	analyzeCmd.Flags().BoolVar(&anaNoHistory, "no-history", false, "do not record this analysis in history")
}
