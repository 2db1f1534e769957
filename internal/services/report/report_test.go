package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ternarybob/thesis/internal/models"
)

func validReport() *models.GeneratedReport {
	return &models.GeneratedReport{
		ExecutiveSummary: "Apple remains a highly profitable hardware and services franchise. " +
			"Growth has slowed, but services and buybacks continue to support earnings per share.",
		BullCase: []string{
			"Revenue grew 12% year over year",
			"Services margin reached 71%",
			"Buyback of $90 billion authorized",
		},
		BearCase: []string{
			"China revenue fell 8% last quarter",
			"Trades at 30x forward earnings",
			"Regulatory fines could top $10 billion",
		},
		ValuationAssessment: "At roughly 28x trailing earnings the shares trade above their ten year average of 20x " +
			"and above large cap hardware peers. The premium reflects recurring services revenue and a net cash " +
			"balance sheet, but leaves little room for disappointment if iPhone demand weakens further.",
		ValuationVerdict: models.VerdictFairlyValued,
		KeyMetrics: []models.KeyMetric{
			{Name: "P/E", Value: "28.5", Explanation: "Premium to history"},
			{Name: "Gross Margin", Value: "45%", Explanation: "Mix shift to services"},
			{Name: "Services Growth", Value: "14%", Explanation: "Main growth driver"},
			{Name: "Net Cash", Value: "$50B", Explanation: "Funds buybacks"},
			{Name: "Dividend Yield", Value: "0.5%", Explanation: "Token income"},
		},
		CatalystCalendar: []models.Catalyst{
			{Date: "2025-01-30", Event: "Q1 earnings", Type: "earnings"},
		},
	}
}

func validReportJSON(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(validReport())
	require.NoError(t, err)
	return string(data)
}

func floatPtr(v float64) *float64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}

func testInput() *models.StockReportInput {
	return &models.StockReportInput{
		Ticker:      "AAPL",
		CompanyName: "Apple Inc.",
		Sector:      "Information Technology",
		Industry:    "Consumer Electronics",
		Description: "Designs smartphones and personal computers.",
		Price:       190.5,
		MarketCap:   2.95e12,
		PE:          floatPtr(28.456),
		GrossMargin: floatPtr(0.4523),
		RecentNews:  []string{"Apple unveils new iPhone"},
	}
}

func repeatPoint(prefix string, n int) string {
	return prefix + strings.Repeat("x", n)
}
