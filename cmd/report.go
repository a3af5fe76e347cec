package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/wineqa/internal/chart"
	"github.com/KaramelBytes/wineqa/internal/report"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

var (
	repData        dataFlags
	repOutputDir   string
	repNoCharts    bool
	repNoXLSX      bool
	repChartFormat string
	repSort        string
	repStdout      bool
)

var reportCmd = &cobra.Command{
	Use:   "report [source]",
	Short: "Analyze the dataset and write the report bundle",
	Long: `Loads the dataset (URL or path; defaults to source_url), computes bucket shares,
per-bucket five-number summaries and correlations, and writes report.md, tables.xlsx,
charts/ and manifest.json to the output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		byAbs, err := parseSort(repSort)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		status := out
		if repStdout {
			// Keep stdout clean for redirection.
			status = cmd.ErrOrStderr()
		}
		res, src, c, err := loadAndAnalyze(cmd, args, &repData, status)
		if err != nil {
			return err
		}
		if repStdout {
			fmt.Fprint(out, report.Markdown(res, report.Meta{Source: src, SortByAbs: byAbs}))
			return nil
		}

		dir := c.OutputDir
		if cmd.Flags().Changed("output") {
			dir = repOutputDir
		}
		format := strings.ToLower(c.ChartFormat)
		if cmd.Flags().Changed("chart-format") {
			format = strings.ToLower(repChartFormat)
		}
		if format != "png" && format != "svg" {
			return fmt.Errorf("unsupported --chart-format: %s (use png|svg)", format)
		}
		opt := report.BundleOptions{
			Source:    src,
			Charts:    c.Charts && !repNoCharts,
			XLSX:      c.XLSX && !repNoXLSX,
			SortByAbs: byAbs,
			Logger:    logger,
			Chart: chart.Options{
				Width:  vg.Length(c.ChartWidthIn) * vg.Inch,
				Height: vg.Length(c.ChartHeightIn) * vg.Inch,
				Format: format,
			},
		}
		m, err := report.WriteBundle(dir, res, opt)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Wrote %d artifact(s) to %s (run %s)\n", len(m.Artifacts), dir, m.RunID)
		if m.RoundedSum != 100 {
			fmt.Fprintf(out, "⚠ Rounded bucket shares sum to %d%%\n", m.RoundedSum)
		}
		return nil
	},
}

func parseSort(s string) (byAbs bool, err error) {
	switch strings.ToLower(s) {
	case "", "signed":
		return false, nil
	case "abs":
		return true, nil
	default:
		return false, fmt.Errorf("unsupported --sort: %s (use signed|abs)", s)
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)
	repData.register(reportCmd)
	reportCmd.Flags().StringVarP(&repOutputDir, "output", "o", "", "output directory (overrides config output_dir)")
	reportCmd.Flags().BoolVar(&repNoCharts, "no-charts", false, "skip chart rendering")
	reportCmd.Flags().BoolVar(&repNoXLSX, "no-xlsx", false, "skip tables.xlsx")
	reportCmd.Flags().StringVar(&repChartFormat, "chart-format", "", "chart format: png|svg (overrides config)")
	reportCmd.Flags().StringVar(&repSort, "sort", "signed", "quality correlation order: signed|abs")
	reportCmd.Flags().BoolVar(&repStdout, "stdout", false, "print report.md to stdout instead of writing the bundle")
}
