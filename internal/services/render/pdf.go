package render

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/thesis/internal/models"
)

const (
	pdfFont       = "Arial"
	pdfFontSize   = 10.0
	pdfLineHeight = 5.0
	pdfPageWidth  = 180.0 // A4 minus 15mm margins
)

// PDF renders report as an A4 PDF by walking the markdown AST.
func (s *Service) PDF(report *models.StockReport) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title(report), true)
	pdf.SetCreator("thesis", true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont(pdfFont, "", pdfFontSize)

	source := []byte(Markdown(report))
	doc := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser().Parse(text.NewReader(source))

	r := &pdfRenderer{
		pdf:       pdf,
		source:    source,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
	if err := ast.Walk(doc, r.walk); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.logger.Error().Err(err).Str("ticker", report.Ticker).Msg("Failed to write PDF output")
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}

	s.logger.Debug().
		Str("ticker", report.Ticker).
		Int("pdf_size", buf.Len()).
		Msg("Report rendered to PDF")
	return buf.Bytes(), nil
}

type pdfRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	translate func(string) string
	bold      bool
	italic    bool
	listLevel int
}

func (r *pdfRenderer) setFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(pdfFont, style, pdfFontSize)
}

func (r *pdfRenderer) write(s string) {
	r.pdf.Write(pdfLineHeight, r.translate(s))
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			r.pdf.Ln(4)
			size := 11.0
			switch node.Level {
			case 1:
				size = 16
			case 2:
				size = 13
			}
			r.pdf.SetFont(pdfFont, "B", size)
		} else {
			r.pdf.Ln(8)
			r.setFont()
		}

	case *ast.Paragraph:
		if !entering && r.listLevel == 0 {
			r.pdf.Ln(7)
		}

	case *ast.Text:
		if entering {
			r.write(string(node.Segment.Value(r.source)))
			if node.SoftLineBreak() || node.HardLineBreak() {
				r.write(" ")
			}
		}

	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.setFont()

	case *ast.List:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(7)
			}
		}

	case *ast.ListItem:
		if entering {
			if node.PreviousSibling() != nil {
				r.pdf.Ln(pdfLineHeight + 1)
			}
			r.pdf.SetX(15 + float64(r.listLevel)*5)
			r.write("- ")
		}

	case *ast.ThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(4)
		}

	case *extast.Table:
		if entering {
			r.renderTable(r.tableRows(node))
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) tableRows(table *extast.Table) [][]string {
	var rows [][]string
	for child := table.FirstChild(); child != nil; child = child.NextSibling() {
		var row []string
		for c := child.FirstChild(); c != nil; c = c.NextSibling() {
			if _, ok := c.(*extast.TableCell); ok {
				row = append(row, r.translate(cellText(c, r.source)))
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// cellText concatenates the text segments below n.
func cellText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func (r *pdfRenderer) renderTable(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	widths := r.columnWidths(rows)
	const fontSize, lineHeight = 8.5, 4.5

	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
			r.pdf.SetFillColor(235, 235, 235)
		}
		r.pdf.SetFont(pdfFont, style, fontSize)

		// Row height is the tallest wrapped cell.
		lines := 1
		for j, cell := range row {
			if j < len(widths) {
				lines = max(lines, len(r.pdf.SplitText(cell, widths[j]-2)))
			}
		}
		height := float64(lines)*lineHeight + 2

		_, pageHeight := r.pdf.GetPageSize()
		_, _, _, bottom := r.pdf.GetMargins()
		if r.pdf.GetY()+height > pageHeight-bottom {
			r.pdf.AddPage()
		}

		x, y := r.pdf.GetX(), r.pdf.GetY()
		for j, cell := range row {
			if j >= len(widths) {
				break
			}
			border := "D"
			if i == 0 {
				border = "FD"
			}
			r.pdf.Rect(x, y, widths[j], height, border)
			r.pdf.SetXY(x+1, y+1)
			r.pdf.MultiCell(widths[j]-2, lineHeight, cell, "", "L", false)
			x += widths[j]
		}
		r.pdf.SetXY(15, y+height)
	}

	r.pdf.Ln(4)
	r.setFont()
}

// columnWidths sizes columns by their widest cell, then scales them to the
// page width.
func (r *pdfRenderer) columnWidths(rows [][]string) []float64 {
	widths := make([]float64, len(rows[0]))
	for _, row := range rows {
		for j, cell := range row {
			if j < len(widths) {
				widths[j] = max(widths[j], r.pdf.GetStringWidth(cell)+4)
			}
		}
	}

	total := 0.0
	for j := range widths {
		widths[j] = max(widths[j], 15)
		total += widths[j]
	}
	scale := pdfPageWidth / total
	for j := range widths {
		widths[j] *= scale
	}
	return widths
}
