package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	return e.render(nil, data, nil)
}

// RenderLetter emits preamble and closing lines as single-column records around the table.
func (e *CSVExporter) RenderLetter(letter Letter) ([]byte, error) {
	head := letter.Preamble
	if letter.Title != "" {
		head = append([]string{letter.Title}, head...)
	}
	return e.render(head, letter.Table, letter.Closing)
}

func (e *CSVExporter) render(head []string, data Dataset, tail []string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	for _, line := range head {
		if err := writer.Write([]string{line}); err != nil {
			return nil, fmt.Errorf("write csv preamble: %w", err)
		}
	}
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	for _, line := range tail {
		if err := writer.Write([]string{line}); err != nil {
			return nil, fmt.Errorf("write csv closing: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
