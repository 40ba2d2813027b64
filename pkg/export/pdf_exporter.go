package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Letter is a titled document with a preamble, a table body and a closing block.
type Letter struct {
	Title    string
	Preamble []string
	Table    Dataset
	Closing  []string
}

// PDFExporter renders datasets into a basic tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	return e.RenderLetter(Letter{Title: title, Table: data})
}

// RenderLetter lays out the preamble lines, the table and the closing lines on A4 landscape.
func (e *PDFExporter) RenderLetter(letter Letter) ([]byte, error) {
	if len(letter.Table.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if letter.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(letter.Title)), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	pdf.SetFont("Arial", "", 10)
	for _, line := range letter.Preamble {
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
	}
	if len(letter.Preamble) > 0 {
		pdf.Ln(3)
	}

	pdf.SetFont("Arial", "B", 9)
	colWidth := 277.0 / float64(len(letter.Table.Headers))
	for _, header := range letter.Table.Headers {
		pdf.CellFormat(colWidth, 8, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range letter.Table.Rows {
		for _, header := range letter.Table.Headers {
			pdf.CellFormat(colWidth, 7, tr(row[header]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(letter.Closing) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		for _, line := range letter.Closing {
			pdf.MultiCell(0, 6, tr(line), "", "L", false)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
