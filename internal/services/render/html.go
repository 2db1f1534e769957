package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/ternarybob/thesis/internal/models"
)

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: -apple-system, "Segoe UI", Arial, sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; color: #222; line-height: 1.5; }
table { border-collapse: collapse; width: 100%%; }
th, td { border: 1px solid #ddd; padding: 6px 8px; text-align: left; vertical-align: top; }
th { background: #f3f3f3; }
</style>
</head>
<body>
%s</body>
</html>
`

var markdownConverter = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithXHTML()),
)

// HTML renders report as a standalone HTML page.
func (s *Service) HTML(report *models.StockReport) ([]byte, error) {
	var body bytes.Buffer
	if err := markdownConverter.Convert([]byte(Markdown(report)), &body); err != nil {
		s.logger.Error().Err(err).Str("ticker", report.Ticker).Msg("Failed to convert report markdown to HTML")
		return nil, fmt.Errorf("failed to render HTML: %w", err)
	}

	page := fmt.Sprintf(htmlTemplate, html.EscapeString(title(report)), body.String())

	s.logger.Debug().
		Str("ticker", report.Ticker).
		Int("html_len", len(page)).
		Msg("Report rendered to HTML")
	return []byte(page), nil
}
