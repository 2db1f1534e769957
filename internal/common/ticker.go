// Package common provides shared utilities across the application.
package common

import (
	"regexp"
	"strings"
)

var tickerPattern = regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z])?$`)

// NormalizeTicker upper-cases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// NormalizeTickers normalizes tickers, dropping blanks and duplicates.
func NormalizeTickers(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t = NormalizeTicker(t); t != "" {
			out = append(out, t)
		}
	}
	return Unique(out)
}

// IsValidTicker reports whether ticker looks like a US listing: one to five
// letters with an optional single-letter share class ("BRK.B"). Case is
// ignored.
func IsValidTicker(ticker string) bool {
	return tickerPattern.MatchString(strings.ToUpper(ticker))
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

// Unique returns items without duplicates, keeping first occurrences in order.
func Unique[T comparable](items []T) []T {
	seen := make(map[T]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
