package fmp

import (
	"time"

	"github.com/ternarybob/thesis/internal/models"
	"github.com/ternarybob/thesis/internal/providers"
)

// Non-nullable fields are required pointers so that a missing key or a
// null fails validation; nullable fields carry no tag.

type quote struct {
	Symbol               *string  `json:"symbol" validate:"required"`
	Name                 *string  `json:"name" validate:"required"`
	Price                *float64 `json:"price" validate:"required"`
	ChangesPercentage    *float64 `json:"changesPercentage" validate:"required"`
	Change               *float64 `json:"change" validate:"required"`
	DayLow               *float64 `json:"dayLow" validate:"required"`
	DayHigh              *float64 `json:"dayHigh" validate:"required"`
	YearHigh             *float64 `json:"yearHigh" validate:"required"`
	YearLow              *float64 `json:"yearLow" validate:"required"`
	MarketCap            *float64 `json:"marketCap" validate:"required"`
	PriceAvg50           *float64 `json:"priceAvg50" validate:"required"`
	PriceAvg200          *float64 `json:"priceAvg200" validate:"required"`
	Exchange             *string  `json:"exchange" validate:"required"`
	Volume               *float64 `json:"volume" validate:"required"`
	AvgVolume            *float64 `json:"avgVolume" validate:"required"`
	Open                 *float64 `json:"open" validate:"required"`
	PreviousClose        *float64 `json:"previousClose" validate:"required"`
	EPS                  *float64 `json:"eps"`
	PE                   *float64 `json:"pe"`
	EarningsAnnouncement *string  `json:"earningsAnnouncement"`
	SharesOutstanding    *float64 `json:"sharesOutstanding" validate:"required"`
	Timestamp            *int64   `json:"timestamp" validate:"required"`
}

func (q *quote) normalize() *models.Quote {
	return &models.Quote{
		Ticker:            *q.Symbol,
		Name:              *q.Name,
		Source:            Name,
		Price:             *q.Price,
		Change:            q.Change,
		ChangePercent:     q.ChangesPercentage,
		Open:              q.Open,
		DayHigh:           q.DayHigh,
		DayLow:            q.DayLow,
		PreviousClose:     q.PreviousClose,
		Volume:            toInt(q.Volume),
		AvgVolume:         toInt(q.AvgVolume),
		YearHigh:          q.YearHigh,
		YearLow:           q.YearLow,
		SMA50:             q.PriceAvg50,
		SMA200:            q.PriceAvg200,
		MarketCap:         q.MarketCap,
		SharesOutstanding: q.SharesOutstanding,
		EPS:               providers.FiniteOrNil(q.EPS),
		PE:                providers.FiniteOrNil(q.PE),
		Exchange:          *q.Exchange,
		EarningsDate:      deref(q.EarningsAnnouncement),
		Timestamp:         time.Unix(*q.Timestamp, 0).UTC(),
	}
}

type profile struct {
	Symbol            *string  `json:"symbol" validate:"required"`
	CompanyName       *string  `json:"companyName" validate:"required"`
	Exchange          *string  `json:"exchange" validate:"required"`
	Industry          *string  `json:"industry" validate:"required"`
	Sector            *string  `json:"sector" validate:"required"`
	Description       *string  `json:"description" validate:"required"`
	CEO               *string  `json:"ceo"`
	Website           *string  `json:"website"`
	Image             *string  `json:"image"`
	IPODate           *string  `json:"ipoDate"`
	MktCap            *float64 `json:"mktCap" validate:"required"`
	FullTimeEmployees *string  `json:"fullTimeEmployees"`
	Country           *string  `json:"country"`
	IsETF             *bool    `json:"isEtf" validate:"required"`
	IsActivelyTrading *bool    `json:"isActivelyTrading" validate:"required"`
}

func (p *profile) normalize() *models.Profile {
	return &models.Profile{
		Ticker:      *p.Symbol,
		Name:        *p.CompanyName,
		Exchange:    *p.Exchange,
		Industry:    *p.Industry,
		Sector:      *p.Sector,
		Description: *p.Description,
		CEO:         deref(p.CEO),
		Website:     deref(p.Website),
		LogoURL:     deref(p.Image),
		IPODate:     deref(p.IPODate),
		MarketCap:   p.MktCap,
		Employees:   providers.ParseNullableInt(deref(p.FullTimeEmployees)),
		Country:     deref(p.Country),
		IsETF:       *p.IsETF,
		IsActive:    *p.IsActivelyTrading,
	}
}

type ratiosTTM struct {
	Symbol                     *string  `json:"symbol" validate:"required"`
	Date                       *string  `json:"date" validate:"required"`
	Period                     *string  `json:"period" validate:"required"`
	CurrentRatio               *float64 `json:"currentRatio"`
	QuickRatio                 *float64 `json:"quickRatio"`
	GrossProfitMargin          *float64 `json:"grossProfitMargin"`
	OperatingProfitMargin      *float64 `json:"operatingProfitMargin"`
	NetProfitMargin            *float64 `json:"netProfitMargin"`
	ReturnOnAssets             *float64 `json:"returnOnAssets"`
	ReturnOnEquity             *float64 `json:"returnOnEquity"`
	DebtEquityRatio            *float64 `json:"debtEquityRatio"`
	InterestCoverage           *float64 `json:"interestCoverage"`
	FreeCashFlowPerShare       *float64 `json:"freeCashFlowPerShare"`
	PayoutRatio                *float64 `json:"payoutRatio"`
	PriceToBookRatio           *float64 `json:"priceToBookRatio"`
	PriceToSalesRatio          *float64 `json:"priceToSalesRatio"`
	PriceEarningsRatio         *float64 `json:"priceEarningsRatio"`
	PriceEarningsToGrowthRatio *float64 `json:"priceEarningsToGrowthRatio"`
	DividendYield              *float64 `json:"dividendYield"`
	EnterpriseValueMultiple    *float64 `json:"enterpriseValueMultiple"`
}

type keyMetricsTTM struct {
	Symbol                    *string  `json:"symbol" validate:"required"`
	Date                      *string  `json:"date" validate:"required"`
	Period                    *string  `json:"period" validate:"required"`
	RevenuePerShare           *float64 `json:"revenuePerShare"`
	FreeCashFlowPerShare      *float64 `json:"freeCashFlowPerShare"`
	BookValuePerShare         *float64 `json:"bookValuePerShare"`
	EnterpriseValue           *float64 `json:"enterpriseValue"`
	PERatio                   *float64 `json:"peRatio"`
	PriceToSalesRatio         *float64 `json:"priceToSalesRatio"`
	PBRatio                   *float64 `json:"pbRatio"`
	EnterpriseValueOverEBITDA *float64 `json:"enterpriseValueOverEBITDA"`
	DebtToEquity              *float64 `json:"debtToEquity"`
	CurrentRatio              *float64 `json:"currentRatio"`
	InterestCoverage          *float64 `json:"interestCoverage"`
	DividendYield             *float64 `json:"dividendYield"`
	PayoutRatio               *float64 `json:"payoutRatio"`
	ROIC                      *float64 `json:"roic"`
	ROE                       *float64 `json:"roe"`
}

type financialGrowth struct {
	Symbol                        *string  `json:"symbol" validate:"required"`
	Date                          *string  `json:"date" validate:"required"`
	Period                        *string  `json:"period" validate:"required"`
	RevenueGrowth                 *float64 `json:"revenueGrowth"`
	EPSGrowth                     *float64 `json:"epsgrowth"`
	ThreeYRevenueGrowthPerShare   *float64 `json:"threeYRevenueGrowthPerShare"`
	ThreeYNetIncomeGrowthPerShare *float64 `json:"threeYNetIncomeGrowthPerShare"`
}

type constituent struct {
	Symbol *string `json:"symbol" validate:"required"`
}

// mergeFundamentals prefers key metrics over ratios where both report a
// figure. Any of the three inputs may be nil.
func mergeFundamentals(ticker string, r *ratiosTTM, m *keyMetricsTTM, g *financialGrowth, today string) *models.Fundamentals {
	if r == nil {
		r = &ratiosTTM{}
	}
	if m == nil {
		m = &keyMetricsTTM{}
	}
	if g == nil {
		g = &financialGrowth{}
	}

	date := today
	if r.Date != nil && *r.Date != "" {
		date = *r.Date
	}

	c := providers.Coalesce
	return &models.Fundamentals{
		Ticker: ticker,
		Date:   date,

		PE:              c(m.PERatio, r.PriceEarningsRatio),
		PB:              c(m.PBRatio, r.PriceToBookRatio),
		PS:              c(m.PriceToSalesRatio, r.PriceToSalesRatio),
		PEG:             r.PriceEarningsToGrowthRatio,
		EVEBITDA:        c(m.EnterpriseValueOverEBITDA, r.EnterpriseValueMultiple),
		EnterpriseValue: m.EnterpriseValue,

		GrossMargin:     r.GrossProfitMargin,
		OperatingMargin: r.OperatingProfitMargin,
		NetMargin:       r.NetProfitMargin,
		ROE:             c(m.ROE, r.ReturnOnEquity),
		ROA:             r.ReturnOnAssets,
		ROIC:            m.ROIC,

		DividendYield: c(m.DividendYield, r.DividendYield),
		PayoutRatio:   c(m.PayoutRatio, r.PayoutRatio),

		DebtToEquity:     c(m.DebtToEquity, r.DebtEquityRatio),
		CurrentRatio:     c(m.CurrentRatio, r.CurrentRatio),
		QuickRatio:       r.QuickRatio,
		InterestCoverage: c(m.InterestCoverage, r.InterestCoverage),

		BookValuePerShare: m.BookValuePerShare,
		FCFPerShare:       c(m.FreeCashFlowPerShare, r.FreeCashFlowPerShare),
		RevenuePerShare:   m.RevenuePerShare,

		RevenueGrowthYoY: g.RevenueGrowth,
		EPSGrowthYoY:     g.EPSGrowth,
		RevenueGrowth3Y:  g.ThreeYRevenueGrowthPerShare,
		EPSGrowth3Y:      g.ThreeYNetIncomeGrowthPerShare,
	}
}

func toInt(v *float64) *int64 {
	if v == nil {
		return nil
	}
	i := int64(*v)
	return &i
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
