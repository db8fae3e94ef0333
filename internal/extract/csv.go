package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// extractCSV renders CSV records as tab-separated lines, matching the Excel
// extractor's row format so downstream chunking treats both the same.
func extractCSV(content []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	// Uploaded CSVs are frequently ragged; take rows as they come.
	r.FieldsPerRecord = -1

	var buf strings.Builder
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse CSV: %w", err)
		}
		buf.WriteString(strings.Join(record, "\t"))
		buf.WriteByte('\n')
	}
	return strings.TrimSpace(buf.String()), nil
}
