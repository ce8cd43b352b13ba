package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
	"github.com/KaramelBytes/dataqual-cli/internal/utils"
)

var (
	abIngest    ingestFlags
	abJobs      int
	abOutDir    string
	abFormat    string
	abQuiet     bool
	abNoHistory bool
	abFailFast  bool
)

type batchResult struct {
	path string
	rep  *analysis.Report
	err  error
}

// expandInputs resolves globs and literal paths, deduplicated and sorted.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// reportFileName picks a unique output name per input, suffixing repeated
// base names with __2, __3...
func reportFileName(base, ext string, used map[string]int) string {
	stem := base[:len(base)-len(filepath.Ext(base))]
	used[stem]++
	if n := used[stem]; n > 1 {
		stem = fmt.Sprintf("%s__%d", stem, n)
	}
	return stem + ".quality" + ext
}

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze many files concurrently and print a score per file",
	Example: `  dataqual analyze-batch 'data/*.csv'
  dataqual analyze-batch 'exports/**.xlsx' --jobs 4 --out-dir reports --format html`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		c := currentConfig()
		if _, err := abIngest.options(); err != nil {
			return err
		}
		ext := ".md"
		switch abFormat {
		case "", "markdown", "md":
		case "json":
			ext = ".json"
		case "html":
			ext = ".html"
		default:
			return fmt.Errorf("unsupported --format: %s (use markdown|json|html)", abFormat)
		}

		results := make([]batchResult, len(files))
		g, ctx := errgroup.WithContext(cmd.Context())
		jobs := abJobs
		if jobs <= 0 {
			jobs = runtime.NumCPU()
		}
		g.SetLimit(jobs)
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					results[i] = batchResult{path: path, err: err}
					return nil
				}
				_, rep, err := loadDataset(path, &abIngest, c)
				results[i] = batchResult{path: path, rep: rep, err: err}
				if err != nil && abFailFast {
					return fmt.Errorf("%s: %w", path, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		used := map[string]int{}
		var record []namedReport
		failed := 0
		for i, r := range results {
			if r.err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "✗ [%d/%d] %s: %v\n", i+1, len(results), r.path, r.err)
				continue
			}
			if !abQuiet {
				fmt.Fprintf(w, "✓ [%d/%d] %s: quality %d/100 (%d rows, %d columns, %d anomalies)\n",
					i+1, len(results), r.path, r.rep.QualityScore, r.rep.Summary.TotalRows,
					r.rep.Summary.TotalColumns, len(r.rep.Anomalies))
			}
			record = append(record, namedReport{filepath.Base(r.path), r.rep})
			if abOutDir == "" {
				continue
			}
			name := reportFileName(filepath.Base(r.path), ext, used)
			data, err := renderAnalysis(abFormat, analysisOutput{FileName: filepath.Base(r.path), Analysis: r.rep})
			if err != nil {
				return err
			}
			if err := utils.WriteOutput(w, filepath.Join(abOutDir, name), data); err != nil {
				return fmt.Errorf("write report for %s: %w", r.path, err)
			}
		}
		if !abNoHistory && len(record) > 0 {
			recordHistory(c, record)
		}
		if !abQuiet {
			fmt.Fprintf(w, "Analyzed %d file(s), %d failed\n", len(results)-failed, failed)
		}
		if failed == len(results) {
			return fmt.Errorf("all %d file(s) failed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abIngest.bind(analyzeBatchCmd.Flags())
	analyzeBatchCmd.Flags().IntVarP(&abJobs, "jobs", "j", 0, "files analyzed in parallel (default: number of CPUs)")
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "write one report per file into this directory")
	analyzeBatchCmd.Flags().StringVar(&abFormat, "format", "markdown", "report format for --out-dir: markdown|json|html")
	analyzeBatchCmd.Flags().BoolVarP(&abQuiet, "quiet", "q", false, "suppress per-file progress lines")
	analyzeBatchCmd.Flags().BoolVar(&abNoHistory, "no-history", false, "do not record these analyses in history")
	analyzeBatchCmd.Flags().BoolVar(&abFailFast, "fail-fast", false, "stop at the first file that fails")
}
