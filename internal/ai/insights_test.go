package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
)

func sampleReport(t *testing.T) *analysis.Report {
	t.Helper()
	rep, err := analysis.AnalyzeRows([]string{"id", "city"}, []map[string]any{
		{"id": 1, "city": "Oslo"},
		{"id": 2, "city": "Bergen"},
		{"id": 3, "city": nil},
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return rep
}

func TestParseInsightsJSON(t *testing.T) {
	content := "```json\n" + `{
  "summary": "Small city table.",
  "dataCharacteristics": ["3 rows", "2 columns"],
  "recommendations": ["Fill missing city"],
  "dataQualityIssues": "One missing value",
  "potentialCorrelations": [],
  "businessInsights": ["Mostly Norwegian cities"]
}` + "\n```"
	ins := ParseInsights(content)
	if ins.Summary != "Small city table." {
		t.Fatalf("summary: %q", ins.Summary)
	}
	if len(ins.DataCharacteristics) != 2 || ins.DataCharacteristics[1] != "2 columns" {
		t.Fatalf("characteristics: %v", ins.DataCharacteristics)
	}
	if len(ins.DataQualityIssues) != 1 || ins.DataQualityIssues[0] != "One missing value" {
		t.Fatalf("issues: %v", ins.DataQualityIssues)
	}
	if ins.PotentialUseCases == nil || len(ins.PotentialUseCases) != 0 {
		t.Fatalf("missing list should be empty, got %v", ins.PotentialUseCases)
	}
}

func TestParseInsightsProseFallback(t *testing.T) {
	content := `Overall the data looks fine.

Recommendations:
- Deduplicate customers
2. Validate emails
Business insight summary
* Sales peak on Fridays`
	ins := ParseInsights(content)
	if ins.Summary != content {
		t.Fatalf("summary should be the full text")
	}
	want := []string{"Deduplicate customers", "Validate emails", "Sales peak on Fridays"}
	if strings.Join(ins.Recommendations, "|") != strings.Join(want, "|") {
		t.Fatalf("recommendations: %v", ins.Recommendations)
	}
	if len(ins.BusinessInsights) != 1 || ins.BusinessInsights[0] != "Sales peak on Fridays" {
		t.Fatalf("business insights: %v", ins.BusinessInsights)
	}
	if len(ins.PotentialCorrelations) != 1 || ins.PotentialCorrelations[0] != noItems {
		t.Fatalf("correlations: %v", ins.PotentialCorrelations)
	}
}

func TestBuildInsightPrompt(t *testing.T) {
	rep := sampleReport(t)
	p := BuildInsightPrompt(rep, []map[string]any{{"id": 1, "city": "Oslo"}})
	for _, want := range []string{
		"**Overall Quality Score:",
		"- Total Rows: 3",
		"- **city** (string):",
		"  - Missing: 33.3% (1 values)",
		"Statistics: Min=1, Max=3, Mean=2.00, Median=2",
		"**Sample Data Preview (first 1 rows):**",
		`"city": "Oslo"`,
		`"potentialUseCases"`,
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestInsighterGenerate(t *testing.T) {
	var got GenerateRequest
	rt := RuntimeFunc(func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
		got = req
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("expected a deadline on the runtime call")
		}
		return &GenerateResponse{
			Choices:   []Choice{{Message: Message{Role: "assistant", Content: `{"summary":"ok","recommendations":["a"]}`}}},
			RequestID: "req_1",
		}, nil
	})
	res := NewInsighter(rt, "gpt-4o-mini").Generate(context.Background(), sampleReport(t), nil)
	if res.Unavailable() {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if res.Insights.Summary != "ok" || res.RequestID != "req_1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got.Model != "gpt-4o-mini" || got.MaxTokens != DefaultInsightMaxTokens || got.Temperature != DefaultInsightTemperature {
		t.Fatalf("unexpected request settings: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestInsighterUnavailable(t *testing.T) {
	res := NewInsighter(nil, "m").Generate(context.Background(), sampleReport(t), nil)
	if !res.Unavailable() || !errors.Is(res.Err, ErrNotConfigured) || !errors.Is(res.Err, ErrUnavailable) {
		t.Fatalf("expected not-configured failure, got %+v", res)
	}

	slow := RuntimeFunc(func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	in := NewInsighter(slow, "m")
	in.Timeout = 20 * time.Millisecond
	res = in.Generate(context.Background(), sampleReport(t), nil)
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout, got %v", res.Err)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.HasPrefix(string(data), `{"error":"insights unavailable`) {
		t.Fatalf("unexpected json: %s", data)
	}
}

func TestInsightsMarkdown(t *testing.T) {
	ins := &Insights{Summary: "Looks fine.", Recommendations: []string{"Fix nulls"}}
	md := ins.Markdown()
	if !strings.Contains(md, "### Recommendations\n\n- Fix nulls\n") {
		t.Fatalf("unexpected markdown:\n%s", md)
	}
	if strings.Contains(md, "Business insights") {
		t.Fatalf("empty sections should be skipped:\n%s", md)
	}
}
