package source

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/wineqa/internal/analysis"
	"github.com/xuri/excelize/v2"
)

type xlsxDecoder struct{}

func (xlsxDecoder) Name() string { return "xlsx" }

func (xlsxDecoder) CanDecode(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Decode reads the selected sheet (or the first one). The first row is the header.
func (xlsxDecoder) Decode(data []byte, opt Options) (*analysis.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &analysis.ParseError{Err: fmt.Errorf("open xlsx: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &analysis.ParseError{Err: errors.New("workbook has no sheets")}
	}
	sheet := sheets[0]
	if opt.Sheet != "" {
		sheet = ""
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return nil, &analysis.ParseError{Err: fmt.Errorf("sheet %q not found; available sheets: %s", opt.Sheet, strings.Join(sheets, ", "))}
		}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &analysis.ParseError{Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
	}
	if len(rows) == 0 {
		return nil, &analysis.ParseError{Line: 1, Err: fmt.Errorf("sheet %q is empty", sheet)}
	}
	header := rows[0]
	body := make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		if len(r) == 0 {
			continue
		}
		// GetRows trims trailing empty cells; pad so the empty cell is reported by column.
		if len(r) < len(header) {
			padded := make([]string, len(header))
			copy(padded, r)
			r = padded
		}
		body = append(body, r)
	}
	return analysis.FromRecords(header, body, analysis.ParseOptions{DecimalSeparator: opt.DecimalSeparator})
}
