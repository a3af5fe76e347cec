package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/KaramelBytes/wineqa/internal/analysis"
	"github.com/KaramelBytes/wineqa/internal/utils"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetBuckets     = "buckets"
	SheetSummary     = "summary"
	SheetCorrelation = "correlation"
	SheetQualityCorr = "quality_corr"
)

// Workbook builds the tables workbook. The caller owns the returned file.
func Workbook(res *analysis.Result) (*excelize.File, error) {
	f := excelize.NewFile()
	ok := false
	defer func() {
		if !ok {
			_ = f.Close()
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetBuckets); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, s := range []string{SheetSummary, SheetCorrelation, SheetQualityCorr} {
		if _, err := f.NewSheet(s); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", s, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	w := sheetWriter{f: f, header: bold}
	w.row(SheetBuckets, "bucket", "count", "percent", "rounded_percent")
	for _, s := range res.Summary.Distribution.Shares {
		w.row(SheetBuckets, s.Bucket.String(), s.Count, s.Percent, s.Rounded)
	}
	w.row(SheetBuckets, "total", res.Summary.Distribution.Total, 100.0, res.Summary.Distribution.RoundedSum)

	w.row(SheetSummary, "metric", "bucket", "n", "min", "p25", "median", "p75", "max", "mean", "std")
	for _, m := range res.Metrics {
		for _, bk := range analysis.Buckets() {
			c, err := res.Summary.Cell(m, bk)
			if err != nil {
				var ie *analysis.InsufficientDataError
				if !errors.As(err, &ie) {
					return nil, err
				}
				w.row(SheetSummary, m, bk.String(), 0, "n/a", "n/a", "n/a", "n/a", "n/a", "n/a", "n/a")
				continue
			}
			w.row(SheetSummary, m, bk.String(), c.N, c.Min, c.P25, c.Median, c.P75, c.Max, c.Mean, c.Std)
		}
	}

	head := []interface{}{""}
	for _, c := range res.Corr.Columns {
		head = append(head, c)
	}
	w.row(SheetCorrelation, head...)
	for i, a := range res.Corr.Columns {
		row := []interface{}{a}
		for j := range res.Corr.Columns {
			if v := res.Corr.Values[i][j]; v.Defined {
				row = append(row, v.R)
			} else {
				row = append(row, "n/a")
			}
		}
		w.row(SheetCorrelation, row...)
	}

	w.row(SheetQualityCorr, "metric", "r", "abs_r", "sign")
	for _, e := range res.Target.Entries {
		if !e.Defined {
			w.row(SheetQualityCorr, e.Metric, "n/a", "n/a", "undefined")
			continue
		}
		w.row(SheetQualityCorr, e.Metric, e.R, e.Abs, string(e.Sign))
	}
	if w.err != nil {
		return nil, w.err
	}
	f.SetActiveSheet(0)
	ok = true
	return f, nil
}

// WriteWorkbook builds the workbook and writes it atomically to path.
func WriteWorkbook(path string, res *analysis.Result) error {
	f, err := Workbook(res)
	if err != nil {
		return err
	}
	defer f.Close()
	return utils.SafeWrite(path, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
}

// sheetWriter appends rows per sheet and keeps the first error.
type sheetWriter struct {
	f      *excelize.File
	header int
	next   map[string]int
	err    error
}

func (w *sheetWriter) row(sheet string, vals ...interface{}) {
	if w.err != nil {
		return
	}
	if w.next == nil {
		w.next = make(map[string]int)
	}
	r := w.next[sheet] + 1
	w.next[sheet] = r
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &vals); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", sheet, r, err)
		return
	}
	if r == 1 {
		if err := w.f.SetRowStyle(sheet, 1, 1, w.header); err != nil {
			w.err = fmt.Errorf("style %s header: %w", sheet, err)
		}
	}
}
