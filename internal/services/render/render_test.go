package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/models"
)

func sampleReport() *models.StockReport {
	return &models.StockReport{
		ID:          "rpt_1",
		Ticker:      "AAPL",
		Version:     2,
		ModelUsed:   "gpt-4o",
		GeneratedAt: time.Date(2025, 1, 12, 9, 30, 0, 0, time.UTC),
		Quality:     models.QualityScore{Overall: 85, Issues: []string{"Bull and bear cases could be more balanced"}},
		Content: models.GeneratedReport{
			ExecutiveSummary:    "Apple is a cash-generative franchise with slowing growth.",
			BullCase:            []string{"Services grew 14%", "Buybacks of $90B", "Margins at 46%"},
			BearCase:            []string{"China sales fell 8%", "Trades at 30x", "Antitrust | fines"},
			ValuationAssessment: "Shares trade at 28x earnings.",
			ValuationVerdict:    models.VerdictFairlyValued,
			KeyMetrics: []models.KeyMetric{
				{Name: "P/E", Value: "28.5", Explanation: "Premium to history"},
				{Name: "Gross Margin", Value: "46%", Explanation: "Services mix"},
			},
			RecentDevelopments: []models.Development{
				{Date: "2025-01-05", Headline: "Vision Pro cut", Summary: "Production reduced."},
			},
			CatalystCalendar: []models.Catalyst{
				{Date: "2025-01-30", Event: "Q1 earnings", Type: "earnings"},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"Markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"html", FormatHTML, false},
		{"pdf", FormatPDF, false},
		{"docx", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "application/json", FormatJSON.ContentType())
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport())

	assert.True(t, strings.HasPrefix(md, "# AAPL Stock Report\n\n"))
	for _, want := range []string{
		"*Version 2, generated 2025-01-12 09:30 UTC by gpt-4o. Quality score 85/100.*",
		"## Bull Case\n\n- Services grew 14%\n- Buybacks of $90B\n- Margins at 46%\n",
		"**Verdict: Fairly Valued**",
		"| P/E | 28.5 | Premium to history |",
		`- Antitrust | fines`,
		"- **2025-01-05: Vision Pro cut.** Production reduced.",
		"| 2025-01-30 | Q1 earnings | earnings |",
		"## Quality Notes",
	} {
		assert.Contains(t, md, want)
	}
}

func TestMarkdown_OmitsEmptySections(t *testing.T) {
	report := sampleReport()
	report.Content.RecentDevelopments = nil
	report.Content.CatalystCalendar = nil
	report.Quality.Issues = nil

	md := Markdown(report)
	assert.NotContains(t, md, "## Recent Developments")
	assert.NotContains(t, md, "## Catalyst Calendar")
	assert.NotContains(t, md, "## Quality Notes")
}

func TestCellEscapesPipes(t *testing.T) {
	assert.Equal(t, `a \| b c`, cell("a | b\nc"))
}

func TestHTML(t *testing.T) {
	report := sampleReport()
	report.Content.ExecutiveSummary = "Apple <script>alert(1)</script> summary."

	page, err := NewService(arbor.NewNoOpLogger()).HTML(report)
	require.NoError(t, err)

	out := string(page)
	assert.Contains(t, out, "<title>AAPL Stock Report</title>")
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>Premium to history</td>")
	assert.NotContains(t, out, "<script>")
}

func TestPDF(t *testing.T) {
	report := sampleReport()
	report.Content.ExecutiveSummary = "Apple’s outlook — résumé of the quarter."

	data, err := NewService(arbor.NewNoOpLogger()).PDF(report)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Greater(t, len(data), 500)
}

func TestRender(t *testing.T) {
	svc := NewService(arbor.NewNoOpLogger())

	md, err := svc.Render(sampleReport(), FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, Markdown(sampleReport()), string(md))

	_, err = svc.Render(sampleReport(), FormatJSON)
	assert.Error(t, err)
}
