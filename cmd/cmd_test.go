package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at a temp dir and clears provider keys.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("DATAQUAL_API_KEY", "")
	return home
}

// resetFlags restores every flag to its default so bound package variables
// do not leak between invocations.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	require.NoError(t, err, "command %v failed:\n%s", args, out)
	return out
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

const peopleCSV = "id,city\n1,Oslo\n2,\n3,Bergen\n3,Bergen\n"

func TestAnalyzeMarkdownWithSuggestionsRecordsHistory(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "people.csv", peopleCSV)

	out := mustRun(t, "analyze", path, "--suggest", "--table", "people")
	assert.Contains(t, out, "[DATASET SUMMARY]")
	assert.Contains(t, out, "File: people.csv")
	assert.Contains(t, out, "Duplicate rows: 1")
	assert.Contains(t, out, "## Missing Values")
	assert.Contains(t, out, "FROM people")

	out = mustRun(t, "history", "list")
	assert.Contains(t, out, "people.csv")
	assert.FileExists(t, filepath.Join(home, ".dataqual", "history.json"))
}

func TestAnalyzeNoHistory(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "people.csv", peopleCSV)

	mustRun(t, "analyze", path, "--no-history")
	out := mustRun(t, "history", "list")
	assert.Contains(t, out, "(no history)")
}

func TestAnalyzeJSONToFile(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "people.csv", peopleCSV)
	dst := filepath.Join(home, "out", "report.json")

	out := mustRun(t, "analyze", path, "--format", "json", "-o", dst, "--no-history")
	assert.Contains(t, out, "✓ Wrote analysis to")

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	var doc struct {
		FileName string `json:"fileName"`
		Analysis struct {
			Summary struct {
				TotalRows     int `json:"totalRows"`
				DuplicateRows int `json:"duplicateRows"`
			} `json:"summary"`
			QualityScore int `json:"qualityScore"`
		} `json:"analysis"`
		Suggestions []any `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, "people.csv", doc.FileName)
	assert.Equal(t, 4, doc.Analysis.Summary.TotalRows)
	assert.Equal(t, 1, doc.Analysis.Summary.DuplicateRows)
	assert.Nil(t, doc.Suggestions)
}

func TestAnalyzeHTMLAndLocaleFlags(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "eu.csv", "name;amount\na;1.234,5\nb;2,25\n")

	out := mustRun(t, "analyze", path, "--delimiter", ";", "--decimal", "comma", "--thousands", ".", "--format", "html", "--no-history")
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>") || strings.Contains(out, "<html"), out)
	assert.Contains(t, out, "amount")
}

func TestAnalyzeRejectsBadFlags(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "people.csv", peopleCSV)

	_, err := runCmd(t, "analyze", path, "--format", "pdf", "--no-history")
	assert.ErrorContains(t, err, "unsupported --format")
	_, err = runCmd(t, "analyze", path, "--delimiter", "#", "--no-history")
	assert.ErrorContains(t, err, "unsupported --delimiter")
	_, err = runCmd(t, "analyze", filepath.Join(home, "missing.csv"))
	assert.Error(t, err)
}

func TestAnalyzeBatchOrderedOutput(t *testing.T) {
	home := isolate(t)
	writeFile(t, home, "b.csv", "x\n1\n2\n")
	writeFile(t, home, "a.csv", "x\n1\n1\n")
	d2 := filepath.Join(home, "d2")
	require.NoError(t, os.MkdirAll(d2, 0o755))
	writeFile(t, d2, "a.csv", "x\n5\n")
	reports := filepath.Join(home, "reports")

	out := mustRun(t, "analyze-batch", filepath.Join(home, "*.csv"), filepath.Join(d2, "a.csv"),
		"--jobs", "2", "--out-dir", reports, "--no-history")
	ia := strings.Index(out, filepath.Join(home, "a.csv"))
	ib := strings.Index(out, filepath.Join(home, "b.csv"))
	require.True(t, ia >= 0 && ib >= 0, out)
	assert.Less(t, ia, ib)
	assert.Contains(t, out, "Analyzed 3 file(s), 0 failed")
	assert.FileExists(t, filepath.Join(reports, "a.quality.md"))
	assert.FileExists(t, filepath.Join(reports, "a__2.quality.md"))
	assert.FileExists(t, filepath.Join(reports, "b.quality.md"))
}

func TestAnalyzeBatchNoMatches(t *testing.T) {
	home := isolate(t)
	_, err := runCmd(t, "analyze-batch", filepath.Join(home, "*.csv"))
	assert.ErrorContains(t, err, "no input files matched")
}

func TestSuggestJSON(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "people.csv", peopleCSV)

	out := mustRun(t, "suggest", path, "--json")
	var doc struct {
		Table       string `json:"table"`
		Suggestions []struct {
			Issue string `json:"issue"`
		} `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "your_table", doc.Table)
	require.NotEmpty(t, doc.Suggestions)
	assert.Equal(t, "Missing Values", doc.Suggestions[0].Issue)
}

func TestInsightsDryRunAndBudget(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "people.csv", peopleCSV)

	out := mustRun(t, "insights", path, "--provider", "openai", "--model", "gpt-4o", "--dry-run")
	assert.Contains(t, out, "Provider: openai, model: gpt-4o")
	assert.Contains(t, out, "Estimated max cost")
	assert.Contains(t, out, "Dry run")

	_, err := runCmd(t, "insights", path, "--provider", "openai", "--model", "gpt-4o", "--dry-run", "--budget-limit", "0.000001")
	assert.ErrorContains(t, err, "exceeds budget limit")
}

func TestInsightsWithoutKey(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "people.csv", peopleCSV)

	_, err := runCmd(t, "insights", path, "--provider", "openai")
	assert.ErrorContains(t, err, "no API key")
}

func TestAnalyzeInsightsUnavailableStillReports(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "people.csv", peopleCSV)

	out := mustRun(t, "analyze", path, "--insights", "--provider", "openrouter", "--no-history")
	assert.Contains(t, out, "[DATASET SUMMARY]")
	assert.Contains(t, out, "insights unavailable")
}

func TestHistoryTrendAndClear(t *testing.T) {
	home := isolate(t)
	a := writeFile(t, home, "a.csv", peopleCSV)
	b := writeFile(t, home, "b.csv", "x\n1\n2\n3\n")

	out := mustRun(t, "history", "trend")
	assert.Contains(t, out, "Not enough history")

	mustRun(t, "analyze", a)
	mustRun(t, "analyze", b)
	out = mustRun(t, "history", "trend")
	assert.Contains(t, out, "Total analyses: 2")
	assert.Contains(t, out, "Trend: improving")

	out = mustRun(t, "history", "clear")
	assert.Contains(t, out, "History cleared")
	out = mustRun(t, "history", "list", "--json")
	assert.Contains(t, out, "[]")
}

func TestConfigSetAndShow(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "cfg.yaml")

	mustRun(t, "--config", path, "config", "set", "default_table", "sales")
	out := mustRun(t, "--config", path, "config", "show")
	assert.Contains(t, out, "default_table: sales")
	assert.Contains(t, out, "history_backend: file")

	_, err := runCmd(t, "--config", path, "config", "set", "bogus", "1")
	assert.ErrorContains(t, err, "unknown key")
}

func TestModelsJSON(t *testing.T) {
	isolate(t)
	out := mustRun(t, "models", "--json")
	var cat []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &cat))
	require.NotEmpty(t, cat)
	for i := 1; i < len(cat); i++ {
		assert.Less(t, cat[i-1].Name, cat[i].Name)
	}
}
