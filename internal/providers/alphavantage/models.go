package alphavantage

import (
	"encoding/json"
	"strings"
)

// Every Alpha Vantage value is a string; pointers distinguish a missing
// field (rejected) from a sentinel such as "None" (normalized to nil).

type globalQuoteResponse struct {
	Quote json.RawMessage `json:"Global Quote" validate:"required"`
}

type globalQuote struct {
	Symbol           *string `json:"01. symbol" validate:"required"`
	Open             *string `json:"02. open" validate:"required"`
	High             *string `json:"03. high" validate:"required"`
	Low              *string `json:"04. low" validate:"required"`
	Price            *string `json:"05. price" validate:"required"`
	Volume           *string `json:"06. volume" validate:"required"`
	LatestTradingDay *string `json:"07. latest trading day" validate:"required"`
	PreviousClose    *string `json:"08. previous close" validate:"required"`
	Change           *string `json:"09. change" validate:"required"`
	ChangePercent    *string `json:"10. change percent" validate:"required"`
}

type overviewResponse struct {
	Symbol                     *string `json:"Symbol" validate:"required"`
	Name                       *string `json:"Name" validate:"required"`
	Description                *string `json:"Description" validate:"required"`
	Exchange                   *string `json:"Exchange" validate:"required"`
	Sector                     *string `json:"Sector" validate:"required"`
	Industry                   *string `json:"Industry" validate:"required"`
	MarketCapitalization       *string `json:"MarketCapitalization" validate:"required"`
	PERatio                    *string `json:"PERatio" validate:"required"`
	PEGRatio                   *string `json:"PEGRatio" validate:"required"`
	BookValue                  *string `json:"BookValue" validate:"required"`
	DividendPerShare           *string `json:"DividendPerShare" validate:"required"`
	DividendYield              *string `json:"DividendYield" validate:"required"`
	EPS                        *string `json:"EPS" validate:"required"`
	ProfitMargin               *string `json:"ProfitMargin" validate:"required"`
	OperatingMarginTTM         *string `json:"OperatingMarginTTM" validate:"required"`
	ReturnOnAssetsTTM          *string `json:"ReturnOnAssetsTTM" validate:"required"`
	ReturnOnEquityTTM          *string `json:"ReturnOnEquityTTM" validate:"required"`
	RevenueTTM                 *string `json:"RevenueTTM" validate:"required"`
	GrossProfitTTM             *string `json:"GrossProfitTTM" validate:"required"`
	QuarterlyEarningsGrowthYOY *string `json:"QuarterlyEarningsGrowthYOY" validate:"required"`
	QuarterlyRevenueGrowthYOY  *string `json:"QuarterlyRevenueGrowthYOY" validate:"required"`
	AnalystTargetPrice         *string `json:"AnalystTargetPrice" validate:"required"`
	TrailingPE                 *string `json:"TrailingPE" validate:"required"`
	ForwardPE                  *string `json:"ForwardPE" validate:"required"`
	PriceToSalesRatioTTM       *string `json:"PriceToSalesRatioTTM" validate:"required"`
	PriceToBookRatio           *string `json:"PriceToBookRatio" validate:"required"`
	EVToRevenue                *string `json:"EVToRevenue" validate:"required"`
	EVToEBITDA                 *string `json:"EVToEBITDA" validate:"required"`
	Beta                       *string `json:"Beta" validate:"required"`
	Week52High                 *string `json:"52WeekHigh" validate:"required"`
	Week52Low                  *string `json:"52WeekLow" validate:"required"`
	MovingAverage50            *string `json:"50DayMovingAverage" validate:"required"`
	MovingAverage200           *string `json:"200DayMovingAverage" validate:"required"`
	SharesOutstanding          *string `json:"SharesOutstanding" validate:"required"`
	DividendDate               *string `json:"DividendDate"`
	ExDividendDate             *string `json:"ExDividendDate"`
}

// errorResponse covers the in-band error shapes: throttling notices,
// premium-endpoint notices and invalid calls.
type errorResponse struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

func (e errorResponse) message() string {
	for _, msg := range []string{e.ErrorMessage, e.Note, e.Information} {
		if msg = strings.TrimSpace(msg); msg != "" {
			return msg
		}
	}
	return ""
}
