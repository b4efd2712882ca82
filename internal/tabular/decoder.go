package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// Decoder turns uploaded spreadsheet bytes into header-keyed row maps.
type Decoder interface {
	Parse(data []byte) ([]map[string]string, error)
}

// CSVDecoder parses comma-separated uploads. Headers are normalized to
// lower_snake form and fully blank rows are dropped.
type CSVDecoder struct{}

// NewCSVDecoder constructs the decoder.
func NewCSVDecoder() *CSVDecoder {
	return &CSVDecoder{}
}

// Parse decodes the sheet into one string map per data row.
func (d *CSVDecoder) Parse(data []byte) ([]map[string]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("spreadsheet is empty")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = NormalizeHeader(h)
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		if blankRow(record) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			row[header] = value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NormalizeHeader lowers a header and joins words with underscores, so
// "Register Number" and "register_number" address the same column.
func NormalizeHeader(raw string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	return strings.Join(fields, "_")
}

func blankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
