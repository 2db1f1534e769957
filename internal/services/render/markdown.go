package render

import (
	"fmt"
	"strings"

	"github.com/ternarybob/thesis/internal/models"
)

const disclaimer = "This report is generated by AI for educational purposes only and is not investment advice."

var verdictLabels = map[string]string{
	models.VerdictUndervalued:  "Undervalued",
	models.VerdictFairlyValued: "Fairly Valued",
	models.VerdictOvervalued:   "Overvalued",
}

// Markdown renders report as a markdown document.
func Markdown(report *models.StockReport) string {
	c := report.Content
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title(report))
	fmt.Fprintf(&b, "*Version %d, generated %s by %s. Quality score %d/100.*\n\n",
		report.Version, report.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), report.ModelUsed, report.Quality.Overall)

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(paragraph(c.ExecutiveSummary))

	b.WriteString("## Bull Case\n\n")
	bullets(&b, c.BullCase)

	b.WriteString("## Bear Case\n\n")
	bullets(&b, c.BearCase)

	b.WriteString("## Valuation\n\n")
	verdict, ok := verdictLabels[c.ValuationVerdict]
	if !ok {
		verdict = c.ValuationVerdict
	}
	fmt.Fprintf(&b, "**Verdict: %s**\n\n", verdict)
	b.WriteString(paragraph(c.ValuationAssessment))

	b.WriteString("## Key Metrics\n\n")
	b.WriteString("| Metric | Value | Why it matters |\n")
	b.WriteString("| --- | --- | --- |\n")
	for _, m := range c.KeyMetrics {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(m.Name), cell(m.Value), cell(m.Explanation))
	}
	b.WriteString("\n")

	if len(c.RecentDevelopments) > 0 {
		b.WriteString("## Recent Developments\n\n")
		for _, d := range c.RecentDevelopments {
			fmt.Fprintf(&b, "- **%s: %s.** %s\n", d.Date, strings.TrimSuffix(d.Headline, "."), d.Summary)
		}
		b.WriteString("\n")
	}

	if len(c.CatalystCalendar) > 0 {
		b.WriteString("## Catalyst Calendar\n\n")
		b.WriteString("| Date | Event | Type |\n")
		b.WriteString("| --- | --- | --- |\n")
		for _, e := range c.CatalystCalendar {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(e.Date), cell(e.Event), cell(e.Type))
		}
		b.WriteString("\n")
	}

	if len(report.Quality.Issues) > 0 {
		b.WriteString("## Quality Notes\n\n")
		bullets(&b, report.Quality.Issues)
	}

	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "*%s*\n", disclaimer)

	return b.String()
}

func paragraph(s string) string {
	return strings.TrimSpace(s) + "\n\n"
}

func bullets(b *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", strings.TrimSpace(item))
	}
	b.WriteString("\n")
}

// cell escapes text for a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
