package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is a titled grid of cells, rendered row by row in header order.
type Table struct {
	Title    string
	Subtitle string
	Headers  []string
	Rows     [][]string
}

// Exporter renders a table into a downloadable document.
type Exporter interface {
	Render(table Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// CSVExporter writes the header row followed by the data rows. Title and subtitle are omitted.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// ContentType implements Exporter.
func (e *CSVExporter) ContentType() string { return "text/csv" }

// Extension implements Exporter.
func (e *CSVExporter) Extension() string { return "csv" }

// Render produces CSV encoded bytes for the table.
func (e *CSVExporter) Render(table Table) ([]byte, error) {
	if len(table.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(table.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for i, row := range table.Rows {
		if len(row) != len(table.Headers) {
			return nil, fmt.Errorf("csv row %d has %d cells, want %d", i, len(row), len(table.Headers))
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
