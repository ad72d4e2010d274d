package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/tealeg/xlsx"
)

// GetHeaderIndexes maps lower-cased header names to their column index.
func GetHeaderIndexes(row *xlsx.Row) map[string]int {
	headers := make(map[string]int)
	for i, cell := range row.Cells {
		name := strings.ToLower(strings.TrimSpace(cell.String()))
		if name != "" {
			headers[name] = i
		}
	}
	return headers
}

func GetString(r *xlsx.Row, headers map[string]int, s string) string {
	if val, ok := headers[s]; ok {
		if val < len(r.Cells) {
			return strings.TrimSpace(r.Cells[val].String())
		}
	}
	return ""
}

// GetDate reads a date cell stored either as an Excel serial or as text.
func GetDate(r *xlsx.Row, headers map[string]int, s string) (*time.Time, error) {
	raw := GetString(r, headers, s)
	if raw == "" {
		return nil, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		t := xlsx.TimeFromExcelTime(f, false).UTC()
		return &t, nil
	}
	t, err := ParseDataFlex(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func IsEmptyExcelRow(r *xlsx.Row) bool {
	for _, cell := range r.Cells {
		if strings.TrimSpace(cell.String()) != "" {
			return false
		}
	}
	return true
}

// CheckHeadersExcelRow returns the header index and the names of required headers that are missing.
func CheckHeadersExcelRow(r *xlsx.Row, required ...string) (map[string]int, []string) {
	headers := GetHeaderIndexes(r)
	var missing []string
	for _, h := range required {
		if _, ok := headers[h]; !ok {
			missing = append(missing, h)
		}
	}
	return headers, missing
}

// AddStringRow appends one row of text cells to sheet.
func AddStringRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
