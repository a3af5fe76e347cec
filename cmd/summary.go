package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/KaramelBytes/wineqa/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	sumData    dataFlags
	sumMetrics []string
	sumBuckets []string
)

var summaryCmd = &cobra.Command{
	Use:   "summary [source]",
	Short: "Print bucket shares and per-bucket five-number summaries",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		buckets, err := parseBuckets(sumBuckets)
		if err != nil {
			return err
		}
		res, _, _, err := loadAndAnalyze(cmd, args, &sumData, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		dist := res.Summary.Distribution

		t := newTable(out, "bucket", "count", "percent", "rounded")
		for _, s := range dist.Shares {
			t.Append([]string{s.Bucket.String(), strconv.Itoa(s.Count), fmt.Sprintf("%.2f", s.Percent), strconv.Itoa(s.Rounded)})
		}
		t.SetFooter([]string{"total", strconv.Itoa(dist.Total), "100.00", strconv.Itoa(dist.RoundedSum)})
		t.Render()

		metrics := res.Metrics
		if len(sumMetrics) > 0 {
			metrics = make([]string, 0, len(sumMetrics))
			for _, m := range sumMetrics {
				m = analysis.CanonicalName(m)
				if !res.Dataset.Has(m) || m == analysis.QualityColumn {
					return &analysis.MissingColumnError{Stage: analysis.StageSummary, Column: m}
				}
				metrics = append(metrics, m)
			}
		}
		for _, m := range metrics {
			fmt.Fprintf(out, "\n%s\n", m)
			t := newTable(out, "bucket", "n", "min", "p25", "median", "p75", "max", "mean", "std")
			for _, bk := range buckets {
				c, err := res.Summary.Cell(m, bk)
				if err != nil {
					var ie *analysis.InsufficientDataError
					if !errors.As(err, &ie) {
						return err
					}
					t.Append([]string{bk.String(), "0", "n/a", "n/a", "n/a", "n/a", "n/a", "n/a", "n/a"})
					continue
				}
				t.Append([]string{bk.String(), strconv.Itoa(c.N), fmtFloat(c.Min), fmtFloat(c.P25), fmtFloat(c.Median),
					fmtFloat(c.P75), fmtFloat(c.Max), fmtFloat(c.Mean), fmtFloat(c.Std)})
			}
			t.Render()
		}
		return nil
	},
}

// parseBuckets resolves bucket labels into declared order without duplicates.
// An empty list selects every bucket.
func parseBuckets(labels []string) ([]analysis.Bucket, error) {
	if len(labels) == 0 {
		return analysis.Buckets(), nil
	}
	seen := make(map[analysis.Bucket]bool, len(labels))
	out := make([]analysis.Bucket, 0, len(labels))
	for _, l := range labels {
		b, err := analysis.ParseBucket(l)
		if err != nil {
			return nil, err
		}
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	sumData.register(summaryCmd)
	summaryCmd.Flags().StringSliceVar(&sumMetrics, "metric", nil, "limit output to these metrics (repeatable)")
	summaryCmd.Flags().StringSliceVar(&sumBuckets, "bucket", nil, "limit per-metric tables to these buckets: 3to4, 5, 6, 7to8 (repeatable)")
}
