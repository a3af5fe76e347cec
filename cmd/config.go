package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/wineqa/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set wineqa configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "source_url: %s\n", c.SourceURL)
		fmt.Fprintf(out, "delimiter: %s\n", c.Delimiter)
		if c.SheetName != "" {
			fmt.Fprintf(out, "sheet_name: %s\n", c.SheetName)
		}
		fmt.Fprintf(out, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
		fmt.Fprintf(out, "output_dir: %s\n", c.OutputDir)
		fmt.Fprintf(out, "charts: %t\n", c.Charts)
		fmt.Fprintf(out, "chart_format: %s\n", c.ChartFormat)
		fmt.Fprintf(out, "chart_width_in: %.2f\n", c.ChartWidthIn)
		fmt.Fprintf(out, "chart_height_in: %.2f\n", c.ChartHeightIn)
		fmt.Fprintf(out, "xlsx: %t\n", c.XLSX)
		fmt.Fprintf(out, "allow_undefined_correlations: %t\n", c.AllowUndefinedCorrelations)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c := cfg
		if c == nil {
			// Start from defaults when the existing file is unreadable, so set can repair it.
			d, err := cfgpkg.Load(cfgFile)
			if err != nil {
				d = cfgpkg.Default()
			}
			c = d
		}
		if err := applySetting(c, key, val); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg, cfgErr = c, nil
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %s\n", key)
		return nil
	},
}

func applySetting(c *cfgpkg.Global, key, val string) error {
	parseBool := func() (bool, error) {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return false, fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		return b, nil
	}
	parsePositive := func() (float64, error) {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return 0, fmt.Errorf("invalid positive number for %s: %v", key, val)
		}
		return f, nil
	}
	var err error
	switch key {
	case "source_url":
		c.SourceURL = val
	case "delimiter":
		if _, err := cfgpkg.ParseDelimiter(val); err != nil {
			return err
		}
		c.Delimiter = val
	case "sheet_name":
		c.SheetName = val
	case "http_timeout_sec":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for http_timeout_sec: %v", val)
		}
		c.HTTPTimeoutSec = i
	case "output_dir":
		c.OutputDir = val
	case "charts":
		c.Charts, err = parseBool()
	case "chart_format":
		c.ChartFormat = strings.ToLower(val)
	case "chart_width_in":
		c.ChartWidthIn, err = parsePositive()
	case "chart_height_in":
		c.ChartHeightIn, err = parsePositive()
	case "xlsx":
		c.XLSX, err = parseBool()
	case "allow_undefined_correlations":
		c.AllowUndefinedCorrelations, err = parseBool()
	default:
		return fmt.Errorf("unknown key: %s (keys: %s)", key, strings.Join(cfgpkg.Keys, ", "))
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
