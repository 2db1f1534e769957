package common

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// SP100Tickers is the default coverage universe.
var SP100Tickers = []string{
	"AAPL", "ABBV", "ABT", "ACN", "ADBE", "AIG", "AMD", "AMGN", "AMT", "AMZN",
	"AVGO", "AXP", "BA", "BAC", "BK", "BKNG", "BLK", "BMY", "BRK.B", "C",
	"CAT", "CHTR", "CL", "CMCSA", "COF", "COP", "COST", "CRM", "CSCO", "CVS",
	"CVX", "DE", "DHR", "DIS", "DOW", "DUK", "EMR", "EXC", "F", "FDX",
	"GD", "GE", "GILD", "GM", "GOOG", "GOOGL", "GS", "HD", "HON", "IBM",
	"INTC", "JNJ", "JPM", "KHC", "KO", "LIN", "LLY", "LMT", "LOW", "MA",
	"MCD", "MDLZ", "MDT", "MET", "META", "MMM", "MO", "MRK", "MS", "MSFT",
	"NEE", "NFLX", "NKE", "NVDA", "ORCL", "PEP", "PFE", "PG", "PM", "PYPL",
	"QCOM", "RTX", "SBUX", "SCHW", "SO", "SPG", "T", "TGT", "TMO", "TMUS",
	"TSLA", "TXN", "UNH", "UNP", "UPS", "USB", "V", "VZ", "WFC", "WMT", "XOM",
}

// GICSSectors groups the SP100 universe by GICS sector.
var GICSSectors = map[string][]string{
	"Communication Services": {"GOOGL", "GOOG", "META", "NFLX", "DIS", "CMCSA", "VZ", "T", "TMUS", "CHTR"},
	"Consumer Discretionary": {"AMZN", "TSLA", "HD", "MCD", "NKE", "LOW", "SBUX", "TGT", "BKNG", "F", "GM"},
	"Consumer Staples":       {"PG", "KO", "PEP", "COST", "WMT", "PM", "MO", "MDLZ", "CL", "KHC"},
	"Energy":                 {"XOM", "CVX", "COP"},
	"Financials":             {"JPM", "BAC", "WFC", "GS", "MS", "BLK", "SCHW", "AXP", "C", "USB", "BK", "COF", "MET", "AIG", "SPG"},
	"Health Care":            {"UNH", "JNJ", "LLY", "PFE", "ABBV", "MRK", "TMO", "ABT", "DHR", "BMY", "AMGN", "GILD", "CVS", "MDT"},
	"Industrials":            {"CAT", "HON", "UNP", "UPS", "BA", "RTX", "DE", "LMT", "GE", "GD", "EMR", "FDX", "MMM"},
	"Information Technology": {"AAPL", "MSFT", "NVDA", "AVGO", "ORCL", "CRM", "ADBE", "AMD", "CSCO", "ACN", "INTC", "IBM", "TXN", "QCOM", "PYPL", "MA", "V"},
	"Materials":              {"LIN", "DOW"},
	"Real Estate":            {"AMT"},
	"Utilities":              {"NEE", "DUK", "SO", "EXC"},
}

// SectorOf returns the GICS sector of an SP100 ticker, or "".
func SectorOf(ticker string) string {
	ticker = NormalizeTicker(ticker)
	for sector, tickers := range GICSSectors {
		for _, t := range tickers {
			if t == ticker {
				return sector
			}
		}
	}
	return ""
}

// ConstituentLister lists index members from a market-data provider.
type ConstituentLister interface {
	GetSP500Constituents(ctx context.Context) ([]string, error)
}

// universeFile is the YAML layout of a custom ticker list:
//
//	tickers:
//	  - AAPL
//	  - MSFT
type universeFile struct {
	Tickers []string `yaml:"tickers"`
}

// LoadUniverse returns the normalized, de-duplicated tickers to cover.
// Invalid symbols are dropped. lister is only needed for the sp500 source.
func LoadUniverse(ctx context.Context, cfg UniverseConfig, lister ConstituentLister) ([]string, error) {
	var raw []string

	switch cfg.Source {
	case "", UniverseSP100:
		raw = SP100Tickers
	case UniverseSP500:
		if lister == nil {
			return nil, fmt.Errorf("sp500 universe requires a constituent provider")
		}
		tickers, err := lister.GetSP500Constituents(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S&P 500 constituents: %w", err)
		}
		raw = tickers
	case UniverseFile:
		tickers, err := LoadUniverseFile(cfg.File)
		if err != nil {
			return nil, err
		}
		raw = tickers
	default:
		return nil, fmt.Errorf("unknown universe source '%s'", cfg.Source)
	}

	tickers := make([]string, 0, len(raw))
	for _, t := range raw {
		t = NormalizeTicker(t)
		if IsValidTicker(t) {
			tickers = append(tickers, t)
		}
	}
	tickers = Unique(tickers)

	if len(tickers) == 0 {
		return nil, fmt.Errorf("universe '%s' contains no valid tickers", cfg.Source)
	}
	return tickers, nil
}

// LoadUniverseFile reads a YAML ticker list.
func LoadUniverseFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file %s: %w", path, err)
	}

	var f universeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse universe file %s: %w", path, err)
	}
	return f.Tickers, nil
}

// Sectors returns the GICS sector names in alphabetical order.
func Sectors() []string {
	names := make([]string, 0, len(GICSSectors))
	for name := range GICSSectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
