package analysis

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Markdown renders a compact, prompt-friendly summary of the report.
func (r *Report) Markdown(name string) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", name))
	}
	s := r.Summary
	b.WriteString(fmt.Sprintf("Rows: %d\n", s.TotalRows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", s.TotalColumns))
	b.WriteString(fmt.Sprintf("Missing cells: %d (completeness %.1f%%)\n", s.TotalMissing, s.Completeness))
	b.WriteString(fmt.Sprintf("Duplicate rows: %d\n", s.DuplicateRows))
	b.WriteString(fmt.Sprintf("Quality score: %d/100\n\n", r.QualityScore))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Columns {
		b.WriteString(fmt.Sprintf("- %s: %s (valid %d, missing %.1f%%, unique %d)",
			safeName(c.Name), c.Type, c.ValidCount, c.MissingPercentage, c.UniqueCount))
		if c.Stats != nil {
			st := c.Stats
			b.WriteString(fmt.Sprintf(" — min %.4g, max %.4g, mean %.4g, median %.4g, std %.4g",
				st.Min, st.Max, st.Mean, st.Median, st.StdDev))
		} else if len(c.TopValues) > 0 {
			b.WriteString(" — top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
			}
		}
		b.WriteString("\n")
	}

	if len(r.Anomalies) > 0 {
		b.WriteString("\n[ANOMALIES]\n")
		for _, a := range r.Anomalies {
			b.WriteString(fmt.Sprintf("- %s [%s, %s]: %s", safeName(a.Column), a.Type, a.Severity, a.Description))
			if a.Bounds != nil {
				b.WriteString(fmt.Sprintf(" (bounds %s..%s)", a.Bounds.Lower, a.Bounds.Upper))
			}
			b.WriteString("\n")
		}
	}
	if len(r.SchemaIssues) > 0 {
		b.WriteString("\n[SCHEMA ISSUES]\n")
		for _, is := range r.SchemaIssues {
			b.WriteString(fmt.Sprintf("- %s [%s, %s]: %s. %s\n",
				safeName(is.Column), is.Type, is.Severity, is.Description, is.Recommendation))
		}
	}
	return b.String()
}

// RenderHTML converts the Markdown form into a standalone HTML page.
// Each appendix is CommonMark appended verbatim after the report.
func (r *Report) RenderHTML(name string, appendix ...string) []byte {
	var md strings.Builder
	title := "Data quality report"
	if name != "" {
		title = fmt.Sprintf("Data quality report: %s", name)
	}
	md.WriteString("# " + title + "\n\n")
	for _, line := range strings.Split(r.Markdown(name), "\n") {
		switch {
		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			md.WriteString("## " + sectionTitle(line) + "\n\n")
		case line == "":
			md.WriteString("\n")
		case strings.HasPrefix(line, "- "):
			md.WriteString(line + "\n")
		default:
			// hard line break keeps summary lines apart
			md.WriteString(line + "  \n")
		}
	}

	for _, a := range appendix {
		md.WriteString("\n" + a + "\n")
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	rd := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML([]byte(md.String()), p, rd)
}

// sectionTitle turns "[SCHEMA ISSUES]" into "Schema issues".
func sectionTitle(line string) string {
	s := strings.ToLower(strings.Trim(line, "[]"))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
