package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter builds an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes headers on the first row and one row per record below.
func (e *XLSXExporter) Render(data Dataset, sheet string) ([]byte, error) {
	return e.render(sheet, nil, data, nil)
}

// RenderLetter writes title and preamble lines in column A, a blank row, the table,
// another blank row and the closing lines.
func (e *XLSXExporter) RenderLetter(letter Letter, sheet string) ([]byte, error) {
	head := letter.Preamble
	if letter.Title != "" {
		head = append([]string{letter.Title}, head...)
	}
	if len(head) > 0 {
		head = append(head, "")
	}
	var tail []string
	if len(letter.Closing) > 0 {
		tail = append([]string{""}, letter.Closing...)
	}
	return e.render(sheet, head, letter.Table, tail)
}

func (e *XLSXExporter) render(sheet string, head []string, data Dataset, tail []string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if sheet == "" {
		sheet = defaultSheet
	}
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return nil, fmt.Errorf("name xlsx sheet: %w", err)
		}
	}

	row := 1
	writeLine := func(value string) error {
		if value != "" {
			if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", row), value); err != nil {
				return fmt.Errorf("write xlsx line: %w", err)
			}
		}
		row++
		return nil
	}
	for _, line := range head {
		if err := writeLine(line); err != nil {
			return nil, err
		}
	}

	for col, header := range data.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return nil, fmt.Errorf("xlsx header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("write xlsx header: %w", err)
		}
	}
	row++
	for _, record := range data.Rows {
		for col, header := range data.Headers {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("xlsx row cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, record[header]); err != nil {
				return nil, fmt.Errorf("write xlsx row: %w", err)
			}
		}
		row++
	}

	for _, line := range tail {
		if err := writeLine(line); err != nil {
			return nil, err
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
