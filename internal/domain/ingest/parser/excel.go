package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FlattenWorkbook converts the first sheet of an XLSX workbook into
// comma-delimited text so the sniffer and the row engine can treat workbook
// uploads exactly like CSV uploads.
func FlattenWorkbook(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// IsWorkbook reports whether the input looks like an XLSX upload, by media
// type or file extension.
func IsWorkbook(name, mediaType string) bool {
	if strings.Contains(mediaType, "spreadsheetml") || strings.Contains(mediaType, "ms-excel") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(name), ".xlsx")
}
