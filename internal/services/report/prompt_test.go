package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMarketCap(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{2.95e12, "$2.95T"},
		{1e12, "$1.00T"},
		{450.25e9, "$450.25B"},
		{1e9, "$1.00B"},
		{12.5e6, "$12.50M"},
		{999999, "$999999"},
		{0, "$0"},
	}

	for _, tt := range tests {
		if got := FormatMarketCap(tt.value); got != tt.want {
			t.Errorf("FormatMarketCap(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestFormatNumberAndPercent(t *testing.T) {
	assert.Equal(t, "N/A", FormatNumber(nil))
	assert.Equal(t, "28.46", FormatNumber(floatPtr(28.456)))
	assert.Equal(t, "N/A", FormatPercent(nil))
	assert.Equal(t, "45.2%", FormatPercent(floatPtr(0.4523)))
	assert.Equal(t, "-3.0%", FormatPercent(floatPtr(-0.03)))
}

func TestBuildStockReportPrompt(t *testing.T) {
	prompt := BuildStockReportPrompt(testInput())

	assert.True(t, strings.HasPrefix(prompt, "Generate a comprehensive stock analysis report for AAPL (Apple Inc.).\n\n## Company Overview\n"))
	for _, line := range []string{
		"- **Sector**: Information Technology",
		"- **Stock Price**: $190.50",
		"- **Market Cap**: $2.95T",
		"- **P/E Ratio**: 28.46",
		"- **Forward P/E**: N/A",
		"- **Gross Margin**: 45.2%",
		"- **ROIC**: N/A",
		"- **Average Target Price**: N/A",
		"- **Number of Analysts**: N/A",
		"## Recent News\n1. Apple unveils new iPhone\n",
		"\n---\n\nPlease provide your analysis in the following JSON format:",
		"6. Catalyst calendar should include known upcoming events (earnings, ex-div dates, etc.)",
	} {
		assert.Contains(t, prompt, line)
	}

	assert.Equal(t, prompt, BuildStockReportPrompt(testInput()), "prompt must be deterministic")
}

func TestBuildStockReportPrompt_AnalystCoverage(t *testing.T) {
	input := testInput()
	input.AnalystTargetPrice = floatPtr(0)
	input.NumberOfAnalysts = intPtr(0)
	prompt := BuildStockReportPrompt(input)
	assert.Contains(t, prompt, "- **Average Target Price**: N/A")
	assert.Contains(t, prompt, "- **Number of Analysts**: 0")

	input.AnalystTargetPrice = floatPtr(215)
	input.NumberOfAnalysts = intPtr(38)
	prompt = BuildStockReportPrompt(input)
	assert.Contains(t, prompt, "- **Average Target Price**: $215.00")
	assert.Contains(t, prompt, "- **Number of Analysts**: 38")
}

func TestBuildStockReportPrompt_NoNews(t *testing.T) {
	input := testInput()
	input.RecentNews = nil

	assert.Contains(t, BuildStockReportPrompt(input), "## Recent News\nNo recent news available.\n")
}

func TestBuildResearchPrompt(t *testing.T) {
	prompt := BuildResearchPrompt("MSFT", "Microsoft Corporation")
	assert.True(t, strings.HasPrefix(prompt, "Research MSFT (Microsoft Corporation). Focus on:\n1. "))
	assert.True(t, strings.HasSuffix(prompt, "Be specific with dates, numbers, and sources."))
}
