package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/thesis/internal/models"
)

// PromptVersion is stored with every report so outputs can be traced to the
// prompt that produced them.
const PromptVersion = "stock-report-v1"

// SystemPrompt frames the model as an equity research analyst.
const SystemPrompt = `You are an expert equity research analyst creating stock reports for retail investors. Your reports should be:

1. **Plain English**: Avoid jargon. When you must use financial terms, explain them briefly.
2. **Balanced**: Present both bull and bear cases honestly. Don't be promotional.
3. **Specific**: Use concrete numbers, dates, and facts. Avoid vague statements.
4. **Actionable**: Help investors understand what to watch for and when.
5. **Honest about uncertainty**: Acknowledge when data is limited or conclusions are uncertain.

Your analysis should be grounded in:
- Recent financial statements and earnings calls
- Industry dynamics and competitive positioning
- Valuation relative to peers and history
- Near-term catalysts and risks

Never provide specific buy/sell recommendations or price targets as investment advice. Present analysis for educational purposes only.`

// ResearchSystemPrompt is sent to the research provider.
const ResearchSystemPrompt = "You are a financial research assistant. Provide factual, well-sourced information about stocks."

const reportFormat = `Please provide your analysis in the following JSON format:

{
  "executiveSummary": "2-3 sentence overview of the company and current investment situation",
  "bullCase": ["Point 1", "Point 2", "Point 3", "Point 4", "Point 5"],
  "bearCase": ["Point 1", "Point 2", "Point 3", "Point 4", "Point 5"],
  "valuationAssessment": "2-3 paragraph analysis of current valuation vs history and peers",
  "valuationVerdict": "undervalued" | "fairly_valued" | "overvalued",
  "keyMetrics": [
    {"name": "Metric Name", "value": "Current Value", "explanation": "Why this matters for this stock"},
    ...
  ],
  "recentDevelopments": [
    {"date": "YYYY-MM-DD", "headline": "Brief headline", "summary": "1-2 sentence summary"},
    ...
  ],
  "catalystCalendar": [
    {"date": "YYYY-MM-DD", "event": "Event description", "type": "earnings|dividend|product|regulatory|other"},
    ...
  ]
}

Important guidelines:
1. Bull and bear cases should each have 3-5 specific, substantive points
2. Key metrics should include 5-7 most relevant metrics for THIS specific stock
3. Be specific with dates and numbers where possible
4. Valuation verdict should be based on multiple valuation methods, not just P/E
5. Recent developments should focus on material events from the last 30 days
6. Catalyst calendar should include known upcoming events (earnings, ex-div dates, etc.)`

// BuildStockReportPrompt renders the user prompt for input. The output is a
// pure function of input.
func BuildStockReportPrompt(input *models.StockReportInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate a comprehensive stock analysis report for %s (%s).\n\n", input.Ticker, input.CompanyName)

	b.WriteString("## Company Overview\n")
	item(&b, "Sector", input.Sector)
	item(&b, "Industry", input.Industry)
	item(&b, "Description", input.Description)

	b.WriteString("\n## Current Market Data\n")
	item(&b, "Stock Price", fmt.Sprintf("$%.2f", input.Price))
	item(&b, "Market Cap", FormatMarketCap(input.MarketCap))

	b.WriteString("\n## Valuation Metrics\n")
	item(&b, "P/E Ratio", FormatNumber(input.PE))
	item(&b, "Forward P/E", FormatNumber(input.ForwardPE))
	item(&b, "P/S Ratio", FormatNumber(input.PS))
	item(&b, "P/B Ratio", FormatNumber(input.PB))
	item(&b, "EV/EBITDA", FormatNumber(input.EVEBITDA))

	b.WriteString("\n## Profitability\n")
	item(&b, "Gross Margin", FormatPercent(input.GrossMargin))
	item(&b, "Operating Margin", FormatPercent(input.OperatingMargin))
	item(&b, "Net Margin", FormatPercent(input.NetMargin))
	item(&b, "ROE", FormatPercent(input.ROE))
	item(&b, "ROIC", FormatPercent(input.ROIC))

	b.WriteString("\n## Growth\n")
	item(&b, "Revenue Growth (YoY)", FormatPercent(input.RevenueGrowthYoY))
	item(&b, "EPS Growth (YoY)", FormatPercent(input.EPSGrowthYoY))

	b.WriteString("\n## Dividends\n")
	item(&b, "Dividend Yield", FormatPercent(input.DividendYield))
	item(&b, "Payout Ratio", FormatPercent(input.PayoutRatio))

	b.WriteString("\n## Financial Health\n")
	item(&b, "Debt/Equity", FormatNumber(input.DebtToEquity))
	item(&b, "Current Ratio", FormatNumber(input.CurrentRatio))

	target := "N/A"
	if input.AnalystTargetPrice != nil && *input.AnalystTargetPrice != 0 {
		target = fmt.Sprintf("$%.2f", *input.AnalystTargetPrice)
	}
	analysts := "N/A"
	if input.NumberOfAnalysts != nil {
		analysts = strconv.Itoa(*input.NumberOfAnalysts)
	}
	b.WriteString("\n## Analyst Coverage\n")
	item(&b, "Average Target Price", target)
	item(&b, "Number of Analysts", analysts)

	b.WriteString("\n## Recent News\n")
	if len(input.RecentNews) == 0 {
		b.WriteString("No recent news available.\n")
	}
	for i, headline := range input.RecentNews {
		fmt.Fprintf(&b, "%d. %s\n", i+1, headline)
	}

	b.WriteString("\n---\n\n")
	b.WriteString(reportFormat)

	return b.String()
}

// BuildResearchPrompt asks the research provider for recent, dated facts
// about the company.
func BuildResearchPrompt(ticker, companyName string) string {
	return fmt.Sprintf(`Research %s (%s). Focus on:
1. Most recent earnings results and any guidance changes
2. Major news from the last 30 days
3. Recent analyst rating changes
4. Upcoming catalysts (earnings date, product launches, etc.)
5. Key competitive developments

Be specific with dates, numbers, and sources.`, ticker, companyName)
}

func item(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "- **%s**: %s\n", label, value)
}

// FormatNumber renders v with two decimals, or N/A when nil.
func FormatNumber(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

// FormatPercent renders a fraction as a percentage with one decimal.
func FormatPercent(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

// FormatMarketCap abbreviates v to trillions, billions or millions.
func FormatMarketCap(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}
