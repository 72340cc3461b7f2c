package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// CSVDialect specifies the CSV format variant.
type CSVDialect string

const (
	// DialectStandard uses RFC 4180 compliant CSV (comma-separated, quoted strings).
	DialectStandard CSVDialect = "standard"

	// DialectTSV uses tab-separated values instead of comma.
	DialectTSV CSVDialect = "tsv"
)

// CSVConfig specifies options for CSV export.
type CSVConfig struct {
	// Dialect specifies the CSV format variant.
	// Default: DialectStandard
	Dialect CSVDialect

	// IncludeHeader writes column headers as the first row.
	// Default: true
	IncludeHeader bool

	// Precision is the number of decimal places for floating-point values.
	// Default: 6
	Precision int

	// NAString is the representation for non-finite values.
	// Default: "NA" (compatible with R and Python pandas)
	NAString string

	// MinWeight drops attention edges at or below this weight.
	// Default: 0 (every off-diagonal entry is written)
	MinWeight float64
}

// DefaultCSVConfig returns a CSVConfig with sensible defaults.
func DefaultCSVConfig() *CSVConfig {
	return &CSVConfig{
		Dialect:       DialectStandard,
		IncludeHeader: true,
		Precision:     6,
		NAString:      "NA",
	}
}

// PositionHeaders are the columns of the positions table.
var PositionHeaders = []string{"index", "token", "x", "y", "norm_x", "norm_y"}

// EdgeHeaders are the columns of the edge list.
var EdgeHeaders = []string{"source", "target", "source_token", "target_token", "weight"}

// CSVWriter writes reasoning map tables.
type CSVWriter struct {
	config      *CSVConfig
	writer      *csv.Writer
	rowsWritten int
}

// NewCSVWriter creates a new CSVWriter that writes to the given io.Writer.
// If config is nil, DefaultCSVConfig() is used.
func NewCSVWriter(w io.Writer, config *CSVConfig) *CSVWriter {
	if config == nil {
		config = DefaultCSVConfig()
	}

	csvWriter := csv.NewWriter(w)
	if config.Dialect == DialectTSV {
		csvWriter.Comma = '\t'
	}

	return &CSVWriter{
		config: config,
		writer: csvWriter,
	}
}

// WritePositions writes one row per token with raw and normalized
// coordinates.
func (cw *CSVWriter) WritePositions(m ReasoningMap) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if cw.config.IncludeHeader {
		if err := cw.writer.Write(PositionHeaders); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	norm := Normalize(m.Positions)
	for i, tok := range m.Tokens {
		row := []string{
			strconv.Itoa(i),
			tok,
			cw.formatFloat(m.Positions[i][0]),
			cw.formatFloat(m.Positions[i][1]),
			cw.formatFloat(norm[i][0]),
			cw.formatFloat(norm[i][1]),
		}
		if err := cw.writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
		cw.rowsWritten++
	}
	return nil
}

// WriteEdges writes the off-diagonal attention entries above MinWeight as a
// directed edge list.
func (cw *CSVWriter) WriteEdges(m ReasoningMap) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if cw.config.IncludeHeader {
		if err := cw.writer.Write(EdgeHeaders); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	for i, row := range m.Attention {
		for j, w := range row {
			if i == j || w <= cw.config.MinWeight {
				continue
			}
			rec := []string{
				strconv.Itoa(i),
				strconv.Itoa(j),
				m.Tokens[i],
				m.Tokens[j],
				cw.formatFloat(w),
			}
			if err := cw.writer.Write(rec); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
			cw.rowsWritten++
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (cw *CSVWriter) Flush() error {
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// RowsWritten returns the number of data rows written (excluding header).
func (cw *CSVWriter) RowsWritten() int {
	return cw.rowsWritten
}

func (cw *CSVWriter) formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return cw.config.NAString
	}
	return strconv.FormatFloat(f, 'f', cw.config.Precision, 64)
}

// ExportPositionsCSV is a convenience function to write the positions table.
func ExportPositionsCSV(w io.Writer, m ReasoningMap, config *CSVConfig) error {
	writer := NewCSVWriter(w, config)
	if err := writer.WritePositions(m); err != nil {
		return err
	}
	return writer.Flush()
}

// ExportEdgesCSV is a convenience function to write the edge list.
func ExportEdgesCSV(w io.Writer, m ReasoningMap, config *CSVConfig) error {
	writer := NewCSVWriter(w, config)
	if err := writer.WriteEdges(m); err != nil {
		return err
	}
	return writer.Flush()
}
