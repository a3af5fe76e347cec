package cmd

import (
	"fmt"

	"github.com/KaramelBytes/wineqa/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	corrData   dataFlags
	corrSort   string
	corrMatrix bool
	corrTop    int
)

var corrCmd = &cobra.Command{
	Use:   "corr [source]",
	Short: "Print correlations with quality and the strongest metric pairs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		byAbs, err := parseSort(corrSort)
		if err != nil {
			return err
		}
		if corrTop <= 0 && !corrMatrix {
			return fmt.Errorf("invalid --top: %d (must be at least 1)", corrTop)
		}
		res, _, _, err := loadAndAnalyze(cmd, args, &corrData, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		entries := res.Target.BySigned()
		if byAbs {
			entries = res.Target.ByAbs()
		}
		t := newTable(out, "metric", "r", "|r|", "sign")
		for _, e := range entries {
			t.Append([]string{e.Metric, fmtR(e.R), fmt.Sprintf("%.3f", e.Abs), string(e.Sign)})
		}
		for _, e := range res.Target.Entries {
			if !e.Defined {
				t.Append([]string{e.Metric, "n/a", "n/a", "undefined"})
			}
		}
		t.Render()

		if corrMatrix {
			fmt.Fprintln(out)
			printMatrix(cmd, res.Corr)
			return nil
		}
		fmt.Fprintf(out, "\nTop %d pairs by |r|\n", corrTop)
		pt := newTable(out, "a", "b", "r")
		for _, p := range res.Corr.TopPairs(corrTop) {
			pt.Append([]string{p.A, p.B, fmtR(p.R)})
		}
		pt.Render()
		return nil
	},
}

func printMatrix(cmd *cobra.Command, m *analysis.CorrMatrix) {
	header := append([]string{""}, m.Columns...)
	t := newTable(cmd.OutOrStdout(), header...)
	for i, a := range m.Columns {
		row := []string{a}
		for j := range m.Columns {
			if v := m.Values[i][j]; v.Defined {
				row = append(row, fmt.Sprintf("%.2f", v.R))
			} else {
				row = append(row, "n/a")
			}
		}
		t.Append(row)
	}
	t.Render()
}

func init() {
	rootCmd.AddCommand(corrCmd)
	corrData.register(corrCmd)
	corrCmd.Flags().StringVar(&corrSort, "sort", "signed", "quality correlation order: signed|abs")
	corrCmd.Flags().BoolVar(&corrMatrix, "matrix", false, "print the full correlation matrix instead of top pairs")
	corrCmd.Flags().IntVar(&corrTop, "top", 10, "number of metric pairs to list")
}
