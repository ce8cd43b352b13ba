package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
)

const (
	DefaultInsightMaxTokens   = 2500
	DefaultInsightTemperature = 0.7
	DefaultInsightTimeout     = 60 * time.Second
	DefaultSampleRows         = 5
	noItems                   = "No specific items identified"
)

// ErrUnavailable marks every failed insight result.
var ErrUnavailable = errors.New("insights unavailable")

const insightSystemPrompt = "You are an expert data scientist and business intelligence analyst. " +
	"Provide deep, actionable insights about data quality, patterns, relationships, and business opportunities. " +
	"Analyze the actual data values, distributions, and correlations. " +
	"Respond in JSON format with keys: summary, dataCharacteristics (array), recommendations (array), " +
	"dataQualityIssues (array), potentialCorrelations (array), businessInsights (array), and potentialUseCases (array)."

// Insights is the structured narrative returned by the runtime.
type Insights struct {
	Summary               string   `json:"summary"`
	DataCharacteristics   []string `json:"dataCharacteristics"`
	DataQualityIssues     []string `json:"dataQualityIssues"`
	Recommendations       []string `json:"recommendations"`
	PotentialCorrelations []string `json:"potentialCorrelations"`
	BusinessInsights      []string `json:"businessInsights"`
	PotentialUseCases     []string `json:"potentialUseCases"`
}

// InsightResult holds either Insights or the reason they are unavailable.
type InsightResult struct {
	Insights  *Insights
	Err       error
	Model     string
	RequestID string
	Usage     Usage
}

// Failure builds the unavailable variant.
func Failure(err error) InsightResult {
	if err == nil {
		err = errors.New("unknown error")
	}
	if !errors.Is(err, ErrUnavailable) {
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return InsightResult{Err: err}
}

// Unavailable reports whether the result carries no insights.
func (r InsightResult) Unavailable() bool { return r.Insights == nil }

// MarshalJSON emits the insights object, or {"error": "..."} when unavailable.
func (r InsightResult) MarshalJSON() ([]byte, error) {
	if r.Unavailable() {
		msg := ErrUnavailable.Error()
		if r.Err != nil {
			msg = r.Err.Error()
		}
		return json.Marshal(map[string]any{"error": msg})
	}
	return json.Marshal(struct {
		*Insights
		Model string `json:"model,omitempty"`
	}{r.Insights, r.Model})
}

// Insighter asks a Runtime for insights on an analysis report.
type Insighter struct {
	Runtime     Runtime
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// NewInsighter returns an Insighter with the stock generation settings.
func NewInsighter(rt Runtime, model string) *Insighter {
	return &Insighter{
		Runtime:     rt,
		Model:       model,
		MaxTokens:   DefaultInsightMaxTokens,
		Temperature: DefaultInsightTemperature,
		Timeout:     DefaultInsightTimeout,
	}
}

// Request builds the chat request sent for rep.
func (in *Insighter) Request(rep *analysis.Report, sample []map[string]any) GenerateRequest {
	return GenerateRequest{
		Model: in.Model,
		Messages: []Message{
			{Role: "system", Content: insightSystemPrompt},
			{Role: "user", Content: BuildInsightPrompt(rep, sample)},
		},
		MaxTokens:   in.MaxTokens,
		Temperature: in.Temperature,
	}
}

// Generate never returns an error: failures come back as the unavailable
// variant. The call is bounded by Timeout even if ctx has no deadline.
func (in *Insighter) Generate(ctx context.Context, rep *analysis.Report, sample []map[string]any) InsightResult {
	if in == nil || in.Runtime == nil {
		return Failure(ErrNotConfigured)
	}
	if rep == nil {
		return Failure(errors.New("no analysis report"))
	}
	timeout := in.Timeout
	if timeout <= 0 {
		timeout = DefaultInsightTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := in.Runtime.Generate(ctx, in.Request(rep, sample))
	if err != nil {
		return Failure(err)
	}
	content := resp.Content()
	if strings.TrimSpace(content) == "" {
		return Failure(errors.New("empty response from runtime"))
	}
	ins := ParseInsights(content)
	return InsightResult{
		Insights:  &ins,
		Model:     in.Model,
		RequestID: resp.RequestID,
		Usage:     resp.Usage,
	}
}

// ParseInsights reads a JSON object reply. Anything else is treated as
// prose: the whole text becomes the summary and list sections are scraped
// by keyword.
func ParseInsights(content string) Insights {
	body := stripCodeFence(content)
	if gjson.Valid(body) {
		if root := gjson.Parse(body); root.IsObject() {
			return Insights{
				Summary:               strings.TrimSpace(root.Get("summary").String()),
				DataCharacteristics:   stringList(root.Get("dataCharacteristics")),
				DataQualityIssues:     stringList(root.Get("dataQualityIssues")),
				Recommendations:       stringList(root.Get("recommendations")),
				PotentialCorrelations: stringList(root.Get("potentialCorrelations")),
				BusinessInsights:      stringList(root.Get("businessInsights")),
				PotentialUseCases:     stringList(root.Get("potentialUseCases")),
			}
		}
	}
	return Insights{
		Summary:               content,
		DataCharacteristics:   extractListItems(content, "characteristic"),
		Recommendations:       extractListItems(content, "recommendation"),
		DataQualityIssues:     extractListItems(content, "issue"),
		PotentialCorrelations: extractListItems(content, "correlation"),
		BusinessInsights:      extractListItems(content, "insight"),
		PotentialUseCases:     extractListItems(content, "use case"),
	}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func stringList(v gjson.Result) []string {
	out := []string{}
	switch {
	case v.IsArray():
		for _, item := range v.Array() {
			if s := strings.TrimSpace(item.String()); s != "" {
				out = append(out, s)
			}
		}
	case v.Type == gjson.String:
		if s := strings.TrimSpace(v.Str); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var listMarker = regexp.MustCompile(`^([-•*]|\d+[.)])\s+`)

// extractListItems collects list items that follow the first line
// mentioning keyword.
func extractListItems(text, keyword string) []string {
	var items []string
	inSection := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.Contains(strings.ToLower(trimmed), keyword):
			inSection = true
		case inSection && listMarker.MatchString(trimmed):
			items = append(items, listMarker.ReplaceAllString(trimmed, ""))
		}
	}
	if len(items) == 0 {
		return []string{noItems}
	}
	return items
}

// BuildInsightPrompt renders the report and sample rows as the user prompt.
func BuildInsightPrompt(rep *analysis.Report, sample []map[string]any) string {
	s := rep.Summary
	var b strings.Builder
	b.WriteString("\nPerform a deep analysis of this dataset and provide comprehensive insights:\n\n")
	fmt.Fprintf(&b, "**Overall Quality Score: %d/100**\n\n", rep.QualityScore)
	b.WriteString("**Dataset Summary:**\n")
	fmt.Fprintf(&b, "- Total Rows: %d\n", s.TotalRows)
	fmt.Fprintf(&b, "- Total Columns: %d\n", s.TotalColumns)
	fmt.Fprintf(&b, "- Completeness: %.1f%%\n", s.Completeness)
	fmt.Fprintf(&b, "- Missing Values: %d (%.1f%% of all cells)\n", s.TotalMissing, pct(s.TotalMissing, s.TotalRows*s.TotalColumns))
	fmt.Fprintf(&b, "- Duplicate Rows: %d (%.1f%%)\n\n", s.DuplicateRows, pct(s.DuplicateRows, s.TotalRows))

	b.WriteString("**Column Details:**\n")
	for i, c := range rep.Columns {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- **%s** (%s):\n", c.Name, c.Type)
		fmt.Fprintf(&b, "  - Missing: %.1f%% (%d values)\n", c.MissingPercentage, c.MissingCount)
		fmt.Fprintf(&b, "  - Unique values: %d", c.UniqueCount)
		if st := c.Stats; st != nil {
			fmt.Fprintf(&b, "\n  - Statistics: Min=%s, Max=%s, Mean=%.2f, Median=%s, StdDev=%.2f",
				num(st.Min), num(st.Max), st.Mean, num(st.Median), st.StdDev)
		}
		if len(c.TopValues) > 0 {
			top := c.TopValues
			if len(top) > 3 {
				top = top[:3]
			}
			parts := make([]string, len(top))
			for j, v := range top {
				parts[j] = fmt.Sprintf("%q (%d)", v.Value, v.Count)
			}
			fmt.Fprintf(&b, "\n  - Top values: %s", strings.Join(parts, ", "))
		}
	}

	if len(rep.Anomalies) > 0 {
		b.WriteString("\n\n**Anomalies Detected:**")
		for _, a := range rep.Anomalies {
			fmt.Fprintf(&b, "\n- %s: %s", a.Column, a.Description)
			if a.Bounds != nil {
				fmt.Fprintf(&b, " [bounds: %s to %s]", a.Bounds.Lower, a.Bounds.Upper)
			}
		}
	}
	if len(rep.SchemaIssues) > 0 {
		b.WriteString("\n\n**Schema Issues:**")
		for _, is := range rep.SchemaIssues {
			fmt.Fprintf(&b, "\n- %s (%s): %s\n  Recommendation: %s", is.Column, is.Severity, is.Description, is.Recommendation)
		}
	}
	if len(sample) > 0 {
		if data, err := json.MarshalIndent(sample, "", "  "); err == nil {
			fmt.Fprintf(&b, "\n\n**Sample Data Preview (first %d rows):**\n%s", len(sample), data)
		}
	}

	b.WriteString(`

**Analysis Requirements:**

1. **Data Characteristics**: Identify 3-4 key characteristics about this dataset (size, structure, data types, distributions, patterns in the actual values)

2. **Deep Quality Analysis**: Beyond basic metrics, identify subtle quality issues like:
   - Suspicious patterns or inconsistencies in the data values
   - Potential data entry errors
   - Biases in distributions
   - Temporal or logical inconsistencies

3. **Actionable Recommendations**: Provide 5-7 specific, prioritized recommendations for:
   - Data cleaning steps
   - Validation rules to implement
   - Data collection improvements
   - Feature engineering opportunities

4. **Potential Correlations**: Based on column names, types, and distributions, suggest 3-4 likely relationships or correlations worth investigating

5. **Business Insights**: Provide 3-4 business-oriented insights about what this data reveals (e.g., customer behavior, operational patterns, trends)

6. **Advanced Use Cases**: Suggest 4-5 sophisticated analyses or ML applications possible with this data

Format your response as JSON:
{
  "summary": "Comprehensive 3-4 sentence overview analyzing the dataset's nature, quality, and potential value",
  "dataCharacteristics": ["characteristic 1", "characteristic 2", ...],
  "recommendations": ["recommendation 1", "recommendation 2", ...],
  "dataQualityIssues": ["critical issue 1", "issue 2", ...],
  "potentialCorrelations": ["correlation insight 1", "correlation 2", ...],
  "businessInsights": ["business insight 1", "insight 2", ...],
  "potentialUseCases": ["advanced use case 1", "use case 2", ...]
}
`)
	return b.String()
}

func pct(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// Markdown renders the insights as headed bullet lists.
func (i *Insights) Markdown() string {
	var b strings.Builder
	b.WriteString("## AI insights\n\n")
	if i.Summary != "" {
		b.WriteString(i.Summary + "\n")
	}
	sections := []struct {
		title string
		items []string
	}{
		{"Data characteristics", i.DataCharacteristics},
		{"Data quality issues", i.DataQualityIssues},
		{"Recommendations", i.Recommendations},
		{"Potential correlations", i.PotentialCorrelations},
		{"Business insights", i.BusinessInsights},
		{"Potential use cases", i.PotentialUseCases},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n### %s\n\n", s.title)
		for _, it := range s.items {
			fmt.Fprintf(&b, "- %s\n", it)
		}
	}
	return b.String()
}
