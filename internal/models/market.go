package models

import "time"

// Quote is a normalized price snapshot. Optional numerics are nil when the
// provider did not report them; they are never NaN.
type Quote struct {
	Ticker string `json:"ticker" badgerhold:"index"`
	Name   string `json:"name,omitempty"`
	Source string `json:"source"` // fmp, alphavantage

	Price         float64  `json:"price"`
	Change        *float64 `json:"change"`
	ChangePercent *float64 `json:"change_percent"`
	Open          *float64 `json:"open"`
	DayHigh       *float64 `json:"day_high"`
	DayLow        *float64 `json:"day_low"`
	PreviousClose *float64 `json:"previous_close"`
	Volume        *int64   `json:"volume"`
	AvgVolume     *int64   `json:"avg_volume"`

	YearHigh *float64 `json:"year_high"`
	YearLow  *float64 `json:"year_low"`
	SMA50    *float64 `json:"sma50"`
	SMA200   *float64 `json:"sma200"`

	MarketCap         *float64 `json:"market_cap"`
	SharesOutstanding *float64 `json:"shares_outstanding"`
	EPS               *float64 `json:"eps"`
	PE                *float64 `json:"pe"`
	Exchange          string   `json:"exchange,omitempty"`

	EarningsDate     string    `json:"earnings_date,omitempty"`
	LatestTradingDay string    `json:"latest_trading_day,omitempty"` // YYYY-MM-DD
	Timestamp        time.Time `json:"timestamp"`
}

// Profile describes the company behind a ticker.
type Profile struct {
	Ticker      string   `json:"ticker"`
	Name        string   `json:"name"`
	Exchange    string   `json:"exchange"`
	Industry    string   `json:"industry"`
	Sector      string   `json:"sector"`
	Description string   `json:"description"`
	CEO         string   `json:"ceo,omitempty"`
	Website     string   `json:"website,omitempty"`
	LogoURL     string   `json:"logo_url,omitempty"`
	IPODate     string   `json:"ipo_date,omitempty"`
	MarketCap   *float64 `json:"market_cap"`
	Employees   *int64   `json:"employees"`
	Country     string   `json:"country,omitempty"`
	IsETF       bool     `json:"is_etf"`
	IsActive    bool     `json:"is_active"`
}

// Fundamentals merges trailing ratios, key metrics and growth figures.
// Ratios are fractions (0.25 = 25%).
type Fundamentals struct {
	Ticker string `json:"ticker"`
	Date   string `json:"date"` // YYYY-MM-DD

	// Valuation
	PE              *float64 `json:"pe"`
	PB              *float64 `json:"pb"`
	PS              *float64 `json:"ps"`
	PEG             *float64 `json:"peg"`
	EVEBITDA        *float64 `json:"ev_ebitda"`
	EnterpriseValue *float64 `json:"enterprise_value"`

	// Profitability
	GrossMargin     *float64 `json:"gross_margin"`
	OperatingMargin *float64 `json:"operating_margin"`
	NetMargin       *float64 `json:"net_margin"`
	ROE             *float64 `json:"roe"`
	ROA             *float64 `json:"roa"`
	ROIC            *float64 `json:"roic"`

	// Dividends
	DividendYield *float64 `json:"dividend_yield"`
	PayoutRatio   *float64 `json:"payout_ratio"`

	// Balance sheet
	DebtToEquity     *float64 `json:"debt_to_equity"`
	CurrentRatio     *float64 `json:"current_ratio"`
	QuickRatio       *float64 `json:"quick_ratio"`
	InterestCoverage *float64 `json:"interest_coverage"`

	// Per share
	BookValuePerShare *float64 `json:"book_value_per_share"`
	FCFPerShare       *float64 `json:"fcf_per_share"`
	RevenuePerShare   *float64 `json:"revenue_per_share"`

	// Growth
	RevenueGrowthYoY *float64 `json:"revenue_growth_yoy"`
	EPSGrowthYoY     *float64 `json:"eps_growth_yoy"`
	RevenueGrowth3Y  *float64 `json:"revenue_growth_3y"`
	EPSGrowth3Y      *float64 `json:"eps_growth_3y"`
}

// Overview is the single-call company summary with embedded fundamentals.
type Overview struct {
	Ticker      string `json:"ticker"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Exchange    string `json:"exchange"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`

	MarketCap          *float64 `json:"market_cap"`
	PE                 *float64 `json:"pe"`
	PEG                *float64 `json:"peg"`
	BookValue          *float64 `json:"book_value"`
	DividendPerShare   *float64 `json:"dividend_per_share"`
	DividendYield      *float64 `json:"dividend_yield"`
	EPS                *float64 `json:"eps"`
	ProfitMargin       *float64 `json:"profit_margin"`
	OperatingMargin    *float64 `json:"operating_margin"`
	ROA                *float64 `json:"roa"`
	ROE                *float64 `json:"roe"`
	Revenue            *float64 `json:"revenue"`
	GrossProfit        *float64 `json:"gross_profit"`
	EPSGrowthYoY       *float64 `json:"eps_growth_yoy"`
	RevenueGrowthYoY   *float64 `json:"revenue_growth_yoy"`
	AnalystTargetPrice *float64 `json:"analyst_target_price"`
	TrailingPE         *float64 `json:"trailing_pe"`
	ForwardPE          *float64 `json:"forward_pe"`
	PS                 *float64 `json:"ps"`
	PB                 *float64 `json:"pb"`
	EVToRevenue        *float64 `json:"ev_to_revenue"`
	EVToEBITDA         *float64 `json:"ev_to_ebitda"`
	Beta               *float64 `json:"beta"`
	Week52High         *float64 `json:"week52_high"`
	Week52Low          *float64 `json:"week52_low"`
	SMA50              *float64 `json:"sma50"`
	SMA200             *float64 `json:"sma200"`
	SharesOutstanding  *float64 `json:"shares_outstanding"`

	DividendDate   string `json:"dividend_date,omitempty"`
	ExDividendDate string `json:"ex_dividend_date,omitempty"`
}

// NewsArticle is a single headline from a news search.
type NewsArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	Source      string    `json:"source"`
	Author      string    `json:"author,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Content     string    `json:"content,omitempty"`
}

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Sentiment is a keyword-based score in [-1, 1].
type Sentiment struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// QuoteSyncResult summarises one quote sync batch.
type QuoteSyncResult struct {
	BatchID string   `json:"batch_id,omitempty"`
	Synced  int      `json:"synced"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
