package report

import (
	"fmt"

	"github.com/ternarybob/thesis/internal/models"
	"github.com/ternarybob/thesis/internal/providers"
)

// maxNewsHeadlines bounds the headlines carried into the prompt.
const maxNewsHeadlines = 10

// BuildInput assembles a StockReportInput from normalized provider records.
// profile and quote are required; fundamentals and news may be nil.
func BuildInput(profile *models.Profile, quote *models.Quote, fundamentals *models.Fundamentals, news []models.NewsArticle) (*models.StockReportInput, error) {
	if profile == nil || quote == nil {
		return nil, fmt.Errorf("profile and quote are required")
	}

	input := &models.StockReportInput{
		Ticker:      quote.Ticker,
		CompanyName: profile.Name,
		Sector:      profile.Sector,
		Industry:    profile.Industry,
		Description: profile.Description,
		Price:       quote.Price,
		RecentNews:  Headlines(news, maxNewsHeadlines),
	}
	if input.Ticker == "" {
		input.Ticker = profile.Ticker
	}
	if input.CompanyName == "" {
		input.CompanyName = quote.Name
	}
	if marketCap := providers.Coalesce(quote.MarketCap, profile.MarketCap); marketCap != nil {
		input.MarketCap = *marketCap
	}

	input.PE = quote.PE
	if f := fundamentals; f != nil {
		input.PE = providers.Coalesce(f.PE, quote.PE)
		input.PS = f.PS
		input.PB = f.PB
		input.EVEBITDA = f.EVEBITDA
		input.GrossMargin = f.GrossMargin
		input.OperatingMargin = f.OperatingMargin
		input.NetMargin = f.NetMargin
		input.ROE = f.ROE
		input.ROIC = f.ROIC
		input.RevenueGrowthYoY = f.RevenueGrowthYoY
		input.EPSGrowthYoY = f.EPSGrowthYoY
		input.DividendYield = f.DividendYield
		input.PayoutRatio = f.PayoutRatio
		input.DebtToEquity = f.DebtToEquity
		input.CurrentRatio = f.CurrentRatio
	}

	if err := providers.Validator().Struct(input); err != nil {
		return nil, fmt.Errorf("invalid report input for %s: %w", input.Ticker, err)
	}
	return input, nil
}

// ApplyOverview fills metrics still missing from input with values from a
// company overview. Values already present are kept.
func ApplyOverview(input *models.StockReportInput, overview *models.Overview) {
	if overview == nil {
		return
	}
	input.PE = providers.Coalesce(input.PE, overview.PE, overview.TrailingPE)
	input.ForwardPE = providers.Coalesce(input.ForwardPE, overview.ForwardPE)
	input.PS = providers.Coalesce(input.PS, overview.PS)
	input.PB = providers.Coalesce(input.PB, overview.PB)
	input.EVEBITDA = providers.Coalesce(input.EVEBITDA, overview.EVToEBITDA)
	input.OperatingMargin = providers.Coalesce(input.OperatingMargin, overview.OperatingMargin)
	input.NetMargin = providers.Coalesce(input.NetMargin, overview.ProfitMargin)
	input.ROE = providers.Coalesce(input.ROE, overview.ROE)
	input.RevenueGrowthYoY = providers.Coalesce(input.RevenueGrowthYoY, overview.RevenueGrowthYoY)
	input.EPSGrowthYoY = providers.Coalesce(input.EPSGrowthYoY, overview.EPSGrowthYoY)
	input.DividendYield = providers.Coalesce(input.DividendYield, overview.DividendYield)
	input.AnalystTargetPrice = providers.Coalesce(input.AnalystTargetPrice, overview.AnalystTargetPrice)

	if input.Sector == "" {
		input.Sector = overview.Sector
	}
	if input.Industry == "" {
		input.Industry = overview.Industry
	}
	if input.Description == "" {
		input.Description = overview.Description
	}
	if input.MarketCap == 0 && overview.MarketCap != nil {
		input.MarketCap = *overview.MarketCap
	}
}

// Headlines formats up to limit articles as "Title (Source, YYYY-MM-DD)".
func Headlines(news []models.NewsArticle, limit int) []string {
	if len(news) > limit {
		news = news[:limit]
	}
	headlines := make([]string, 0, len(news))
	for _, article := range news {
		if article.PublishedAt.IsZero() {
			headlines = append(headlines, fmt.Sprintf("%s (%s)", article.Title, article.Source))
			continue
		}
		headlines = append(headlines, fmt.Sprintf("%s (%s, %s)", article.Title, article.Source, article.PublishedAt.Format("2006-01-02")))
	}
	return headlines
}
