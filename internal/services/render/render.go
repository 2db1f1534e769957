// Package render converts stored reports to markdown, HTML and PDF.
package render

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/models"
)

// Format is an output format accepted by Render.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// ParseFormat maps a query value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatMarkdown, FormatHTML, FormatPDF:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Service renders reports.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a render service.
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// Render produces report in a document format. JSON is left to the caller.
func (s *Service) Render(report *models.StockReport, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return []byte(Markdown(report)), nil
	case FormatHTML:
		return s.HTML(report)
	case FormatPDF:
		return s.PDF(report)
	default:
		return nil, fmt.Errorf("render does not handle format %s", format)
	}
}

func title(report *models.StockReport) string {
	return fmt.Sprintf("%s Stock Report", report.Ticker)
}
