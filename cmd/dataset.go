package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/KaramelBytes/wineqa/internal/analysis"
	cfgpkg "github.com/KaramelBytes/wineqa/internal/config"
	"github.com/KaramelBytes/wineqa/internal/source"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// dataFlags are shared by every command that loads and analyzes the table.
type dataFlags struct {
	delimiter      string
	sheet          string
	decimal        string
	allowUndefined bool
}

func (f *dataFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&f.delimiter, "delimiter", "", "field delimiter: ';', ',', tab, or auto (overrides config)")
	c.Flags().StringVar(&f.sheet, "sheet", "", "worksheet name for .xlsx sources (overrides config)")
	c.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator: '.' or comma")
	c.Flags().BoolVar(&f.allowUndefined, "allow-undefined", false, "tag correlations with a constant column as undefined instead of failing")
}

// loadAndAnalyze resolves the source from args or config, loads it and runs the pipeline.
// Progress lines go to status.
func loadAndAnalyze(cmd *cobra.Command, args []string, f *dataFlags, status io.Writer) (*analysis.Result, string, *cfgpkg.Global, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, "", nil, err
	}
	src := c.SourceURL
	if len(args) > 0 && args[0] != "" {
		src = args[0]
	}

	delim := c.Delimiter
	if cmd.Flags().Changed("delimiter") {
		delim = f.delimiter
	}
	d, err := cfgpkg.ParseDelimiter(delim)
	if err != nil {
		return nil, "", nil, err
	}
	var dec rune
	switch f.decimal {
	case "", ".", "dot":
	case ",", "comma":
		dec = ','
	default:
		return nil, "", nil, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	sheet := c.SheetName
	if cmd.Flags().Changed("sheet") {
		sheet = f.sheet
	}

	raw, err := source.Load(cmd.Context(), src, source.Options{
		Delimiter:        d,
		DecimalSeparator: dec,
		Sheet:            sheet,
		Timeout:          time.Duration(c.HTTPTimeoutSec) * time.Second,
		Logger:           logger,
	})
	if err != nil {
		return nil, "", nil, err
	}
	fmt.Fprintf(status, "✓ Loaded %d rows, %d columns from %s\n", raw.Rows(), len(raw.Columns()), src)

	opt := analysis.DefaultOptions()
	opt.Corr.AllowUndefined = f.allowUndefined || c.AllowUndefinedCorrelations
	opt.Logger = logger
	res, err := analysis.Analyze(raw, opt)
	if err != nil {
		return nil, "", nil, err
	}
	if n := len(res.Corr.Undefined); n > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %d correlation pair(s) undefined (constant column)\n", n)
	}
	return res, src, c, nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetAutoFormatHeaders(false)
	t.SetHeader(header)
	return t
}

func fmtFloat(v float64) string { return fmt.Sprintf("%.4g", v) }

func fmtR(v float64) string { return fmt.Sprintf("%+.3f", v) }
