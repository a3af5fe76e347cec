// Package report assembles analysis results into a Markdown report, a workbook
// of tables, charts and a run manifest.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/wineqa/internal/analysis"
)

// Meta describes the run for the report header.
type Meta struct {
	Source      string
	GeneratedAt time.Time
	// TopPairs caps the [CORRELATIONS] list; 0 means 10.
	TopPairs int
	// SortByAbs orders [QUALITY CORRELATION] by |r| instead of signed r.
	SortByAbs bool
}

// Markdown renders the bracketed-section report. Buckets always appear in declared order.
func Markdown(res *analysis.Result, meta Meta) string {
	var b strings.Builder
	var notes []string

	b.WriteString("[DATASET SUMMARY]\n")
	if meta.Source != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", meta.Source))
	}
	if !meta.GeneratedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Generated: %s\n", meta.GeneratedAt.UTC().Format(time.RFC3339)))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", res.Dataset.Rows()))
	b.WriteString(fmt.Sprintf("Columns: %d (%s)\n", len(res.Dataset.Columns()), strings.Join(res.Dataset.Columns(), ", ")))
	b.WriteString(fmt.Sprintf("Metrics: %d\n\n", len(res.Metrics)))

	dist := res.Summary.Distribution
	b.WriteString("[QUALITY BUCKETS]\n")
	for _, s := range dist.Shares {
		b.WriteString(fmt.Sprintf("- %s: %d rows (%.2f%%, rounded %d%%)\n", s.Bucket, s.Count, s.Percent, s.Rounded))
		if s.Count == 0 {
			notes = append(notes, fmt.Sprintf("bucket %s has no rows; its summary cells are n/a", s.Bucket))
		}
	}
	b.WriteString(fmt.Sprintf("Total: %d rows; rounded shares sum to %d%%\n", dist.Total, dist.RoundedSum))
	if dist.RoundedSum != 100 {
		notes = append(notes, fmt.Sprintf("rounded bucket percentages sum to %d%%, not 100%%; each share is rounded half-up independently", dist.RoundedSum))
	}

	b.WriteString("\n[FIVE-NUMBER SUMMARY]\n")
	for _, m := range res.Metrics {
		b.WriteString(fmt.Sprintf("\n%s\n\n", m))
		b.WriteString("| bucket | n | min | p25 | median | p75 | max | mean | std |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- | --- |\n")
		for _, bk := range analysis.Buckets() {
			c, err := res.Summary.Cell(m, bk)
			if err != nil {
				b.WriteString(fmt.Sprintf("| %s | 0 | n/a | n/a | n/a | n/a | n/a | n/a | n/a |\n", bk))
				continue
			}
			b.WriteString(fmt.Sprintf("| %s | %d | %.4g | %.4g | %.4g | %.4g | %.4g | %.4g | %.4g |\n",
				bk, c.N, c.Min, c.P25, c.Median, c.P75, c.Max, c.Mean, c.Std))
		}
		if o, ok := res.Summary.Overall[m]; ok {
			b.WriteString(fmt.Sprintf("| all | %d | %.4g | %.4g | %.4g | %.4g | %.4g | | |\n",
				dist.Total, o.Min, o.P25, o.Median, o.P75, o.Max))
		}
	}

	top := meta.TopPairs
	if top <= 0 {
		top = 10
	}
	b.WriteString("\n[CORRELATIONS]\n")
	pairs := res.Corr.TopPairs(top)
	if len(pairs) == 0 {
		b.WriteString("(none)\n")
	}
	for _, p := range pairs {
		b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
	}
	for _, u := range res.Corr.Undefined {
		b.WriteString(fmt.Sprintf("- %s ~ %s: undefined\n", u.A, u.B))
		notes = append(notes, fmt.Sprintf("correlation %s ~ %s is undefined (constant column)", u.A, u.B))
	}

	order := "signed r"
	entries := res.Target.BySigned()
	if meta.SortByAbs {
		order = "|r|"
		entries = res.Target.ByAbs()
	}
	b.WriteString(fmt.Sprintf("\n[QUALITY CORRELATION]\nOrdered by %s, descending.\n", order))
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("- %s: r=%+.3f (%s)\n", e.Metric, e.R, e.Sign))
	}
	for _, e := range res.Target.Entries {
		if !e.Defined {
			b.WriteString(fmt.Sprintf("- %s: undefined\n", e.Metric))
			notes = append(notes, fmt.Sprintf("correlation %s ~ %s is undefined (constant column)", e.Metric, res.Target.Target))
		}
	}

	if len(notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}
