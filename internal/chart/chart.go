// Package chart renders the analysis tables as gonum/plot figures.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/wineqa/internal/analysis"
	"github.com/KaramelBytes/wineqa/internal/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Options controls figure size and encoding.
type Options struct {
	Width, Height vg.Length
	// Format is "png" or "svg".
	Format string
	// Bins for density histograms; 0 picks 20.
	Bins int
}

// DefaultOptions returns 6x4 inch PNG figures.
func DefaultOptions() Options {
	return Options{Width: 6 * vg.Inch, Height: 4 * vg.Inch, Format: "png", Bins: 20}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	o.Format = strings.ToLower(o.Format)
	if o.Format == "" {
		o.Format = d.Format
	}
	if o.Bins <= 0 {
		o.Bins = d.Bins
	}
	return o
}

var (
	positiveColor = color.RGBA{R: 178, G: 34, B: 34, A: 255}
	negativeColor = color.RGBA{R: 33, G: 102, B: 172, A: 255}
	referenceLine = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

// BucketDistribution is a bar chart of row counts per quality bucket.
func BucketDistribution(d analysis.Distribution) (*plot.Plot, error) {
	if len(d.Shares) == 0 {
		return nil, errors.New("empty distribution")
	}
	vals := make(plotter.Values, len(d.Shares))
	labels := make([]string, len(d.Shares))
	for i, s := range d.Shares {
		vals[i] = float64(s.Count)
		labels[i] = fmt.Sprintf("%s (%d%%)", s.Bucket, s.Rounded)
	}
	bars, err := plotter.NewBarChart(vals, vg.Points(30))
	if err != nil {
		return nil, fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Quality bucket distribution (n=%d)", d.Total)
	p.Y.Label.Text = "rows"
	p.Add(bars)
	p.NominalX(labels...)
	return p, nil
}

// TargetCorrelation is a bar chart of each metric's r against the target, ordered
// by signed value or by magnitude. Positive bars and negative bars use distinct colors.
func TargetCorrelation(v *analysis.TargetVector, byAbs bool) (*plot.Plot, error) {
	entries := v.BySigned()
	order := "signed"
	if byAbs {
		entries = v.ByAbs()
		order = "|r|"
	}
	if len(entries) == 0 {
		return nil, errors.New("no defined correlations")
	}
	pos := make(plotter.Values, len(entries))
	neg := make(plotter.Values, len(entries))
	labels := make([]string, len(entries))
	for i, e := range entries {
		if e.R >= 0 {
			pos[i] = e.R
		} else {
			neg[i] = e.R
		}
		labels[i] = e.Metric
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Correlation with %s (by %s)", v.Target, order)
	p.Y.Label.Text = "r"
	p.Y.Min, p.Y.Max = -1, 1
	for _, s := range []struct {
		vals plotter.Values
		c    color.Color
	}{{pos, positiveColor}, {neg, negativeColor}} {
		bars, err := plotter.NewBarChart(s.vals, vg.Points(14))
		if err != nil {
			return nil, fmt.Errorf("bar chart: %w", err)
		}
		bars.Color = s.c
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)
	}
	p.Add(plotter.NewGrid())
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	return p, nil
}

// BoxByBucket draws one quartile box per quality bucket for metric. Empty buckets
// keep their slot on the axis without a box.
func BoxByBucket(b *analysis.Bucketed, metric string) (*plot.Plot, error) {
	groups, err := b.Grouped(metric)
	if err != nil {
		return nil, err
	}
	p := plot.New()
	p.Title.Text = metric + " by quality bucket"
	p.Y.Label.Text = metric
	labels := make([]string, 0, len(analysis.Buckets()))
	for i, bk := range analysis.Buckets() {
		vals := groups[bk]
		labels = append(labels, fmt.Sprintf("%s (n=%d)", bk, len(vals)))
		if len(vals) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(28), float64(i), plotter.Values(vals))
		if err != nil {
			return nil, fmt.Errorf("box plot %s/%s: %w", metric, bk, err)
		}
		box.FillColor = plotutil.Color(i)
		p.Add(box)
	}
	p.NominalX(labels...)
	return p, nil
}

// Violin draws a mirrored Gaussian kernel density per quality bucket for metric.
// Buckets with fewer than two distinct values keep their slot without a shape.
func Violin(b *analysis.Bucketed, metric string) (*plot.Plot, error) {
	groups, err := b.Grouped(metric)
	if err != nil {
		return nil, err
	}
	p := plot.New()
	p.Title.Text = metric + " distribution by quality bucket"
	p.Y.Label.Text = metric
	labels := make([]string, 0, len(analysis.Buckets()))
	for i, bk := range analysis.Buckets() {
		vals := groups[bk]
		labels = append(labels, fmt.Sprintf("%s (n=%d)", bk, len(vals)))
		outline := violinOutline(vals, float64(i), 0.4, 64)
		if outline == nil {
			continue
		}
		poly, err := plotter.NewPolygon(outline)
		if err != nil {
			return nil, fmt.Errorf("violin %s/%s: %w", metric, bk, err)
		}
		poly.Color = plotutil.Color(i)
		poly.LineStyle.Width = vg.Points(0.5)
		p.Add(poly)
	}
	p.NominalX(labels...)
	return p, nil
}

// violinOutline returns the closed outline of a KDE centered at x, scaled so the
// widest point spans halfWidth on each side. Bandwidth follows Silverman's rule.
func violinOutline(vals []float64, x, halfWidth float64, steps int) plotter.XYs {
	if len(vals) < 2 {
		return nil
	}
	sd := stat.StdDev(vals, nil)
	if sd == 0 || math.IsNaN(sd) {
		return nil
	}
	h := 1.06 * sd * math.Pow(float64(len(vals)), -0.2)
	lo, hi := floats.Min(vals)-2*h, floats.Max(vals)+2*h
	ys := make([]float64, steps)
	dens := make([]float64, steps)
	peak := 0.0
	for k := range ys {
		y := lo + (hi-lo)*float64(k)/float64(steps-1)
		var d float64
		for _, v := range vals {
			u := (y - v) / h
			d += math.Exp(-0.5 * u * u)
		}
		ys[k], dens[k] = y, d
		peak = math.Max(peak, d)
	}
	out := make(plotter.XYs, 0, 2*steps)
	for k := range ys {
		out = append(out, plotter.XY{X: x + halfWidth*dens[k]/peak, Y: ys[k]})
	}
	for k := steps - 1; k >= 0; k-- {
		out = append(out, plotter.XY{X: x - halfWidth*dens[k]/peak, Y: ys[k]})
	}
	return out
}

// Density is a histogram of metric normalized to unit area.
func Density(ds *analysis.Dataset, metric string, bins int) (*plot.Plot, error) {
	vals, ok := ds.Column(metric)
	if !ok {
		return nil, &analysis.MissingColumnError{Stage: analysis.StageSummary, Column: metric}
	}
	if len(vals) == 0 {
		return nil, &analysis.InsufficientDataError{Stage: analysis.StageSummary, Metric: metric, Need: 1}
	}
	if bins <= 0 {
		bins = DefaultOptions().Bins
	}
	h, err := plotter.NewHist(plotter.Values(vals), bins)
	if err != nil {
		return nil, fmt.Errorf("histogram %s: %w", metric, err)
	}
	h.Normalize(1)
	h.FillColor = plotutil.Color(2)
	p := plot.New()
	p.Title.Text = metric + " density"
	p.X.Label.Text = metric
	p.Y.Label.Text = "density"
	p.Add(h)
	return p, nil
}

// corrGrid adapts a CorrMatrix to plotter.GridXYZ. Undefined cells are NaN.
type corrGrid struct{ m *analysis.CorrMatrix }

func (g corrGrid) Dims() (c, r int) { n := len(g.m.Columns); return n, n }
func (g corrGrid) X(c int) float64  { return float64(c) }
func (g corrGrid) Y(r int) float64  { return float64(r) }
func (g corrGrid) Z(c, r int) float64 {
	v := g.m.Values[r][c]
	if !v.Defined {
		return math.NaN()
	}
	return v.R
}

// Heatmap draws the correlation matrix on a diverging blue-red scale fixed to [-1, 1].
func Heatmap(m *analysis.CorrMatrix) (*plot.Plot, error) {
	if len(m.Columns) < 2 {
		return nil, &analysis.InsufficientDataError{Stage: analysis.StageCorrelation, N: len(m.Columns), Need: 2}
	}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)
	hm := plotter.NewHeatMap(corrGrid{m}, cm.Palette(64))
	hm.Min, hm.Max = -1, 1
	hm.NaN = color.Gray{Y: 200}

	p := plot.New()
	p.Title.Text = "Correlation matrix"
	p.Add(hm)
	p.NominalX(m.Columns...)
	p.NominalY(m.Columns...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	return p, nil
}

// Scatter plots y against x with dashed reference lines at both medians.
func Scatter(ds *analysis.Dataset, x, y string) (*plot.Plot, error) {
	xs, ok := ds.Column(x)
	if !ok {
		return nil, &analysis.MissingColumnError{Stage: analysis.StageCorrelation, Column: x}
	}
	ys, ok := ds.Column(y)
	if !ok {
		return nil, &analysis.MissingColumnError{Stage: analysis.StageCorrelation, Column: y}
	}
	if len(xs) == 0 {
		return nil, &analysis.InsufficientDataError{Stage: analysis.StageCorrelation, Metric: x + " ~ " + y, Need: 1}
	}
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	s.Color = color.RGBA{R: 50, G: 50, B: 255, A: 160}
	s.Radius = vg.Points(1.5)
	s.Shape = draw.CircleGlyph{}

	xmin, xmax, ymin, ymax := plotter.XYRange(pts)
	mx, my := analysis.Median(xs), analysis.Median(ys)
	vline, err := plotter.NewLine(plotter.XYs{{X: mx, Y: ymin}, {X: mx, Y: ymax}})
	if err != nil {
		return nil, fmt.Errorf("median line: %w", err)
	}
	hline, err := plotter.NewLine(plotter.XYs{{X: xmin, Y: my}, {X: xmax, Y: my}})
	if err != nil {
		return nil, fmt.Errorf("median line: %w", err)
	}
	for _, l := range []*plotter.Line{vline, hline} {
		l.Color = referenceLine
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs %s", y, x)
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Add(s, vline, hline)
	p.Legend.Add("median", vline)
	return p, nil
}

// Save encodes p in opt.Format and writes it atomically to path.
func Save(p *plot.Plot, path string, opt Options) error {
	opt = opt.normalized()
	wt, err := p.WriterTo(opt.Width, opt.Height, opt.Format)
	if err != nil {
		return fmt.Errorf("encode %s: %w", opt.Format, err)
	}
	return utils.SafeWrite(path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}

// FileName builds "<kind>_<parts...>.<format>" from canonical column names.
func FileName(format, kind string, parts ...string) string {
	name := kind
	for _, p := range parts {
		name += "_" + analysis.CanonicalName(p)
	}
	return name + "." + format
}

// ScatterPairs picks the default bivariate views: alcohol vs volatile acidity when
// both exist, then the strongest defined pair if it differs.
func ScatterPairs(res *analysis.Result) [][2]string {
	var out [][2]string
	if res.Dataset.Has("alcohol") && res.Dataset.Has("volatile_acidity") {
		out = append(out, [2]string{"alcohol", "volatile_acidity"})
	}
	if top := res.Corr.TopPairs(1); len(top) == 1 {
		pair := [2]string{top[0].A, top[0].B}
		if len(out) == 0 || !samePair(out[0], pair) {
			out = append(out, pair)
		}
	}
	return out
}

func samePair(a, b [2]string) bool {
	return (a[0] == b[0] && a[1] == b[1]) || (a[0] == b[1] && a[1] == b[0])
}

// RenderAll writes every chart for res under dir and returns the written paths,
// relative to dir, in render order.
func RenderAll(dir string, res *analysis.Result, byAbs bool, opt Options) ([]string, error) {
	opt = opt.normalized()
	var written []string
	save := func(p *plot.Plot, name string) error {
		if err := Save(p, filepath.Join(dir, name), opt); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		written = append(written, name)
		return nil
	}

	p, err := BucketDistribution(res.Summary.Distribution)
	if err != nil {
		return written, err
	}
	if err := save(p, FileName(opt.Format, "bucket_distribution")); err != nil {
		return written, err
	}
	if p, err := TargetCorrelation(res.Target, byAbs); err == nil {
		if err := save(p, FileName(opt.Format, "quality_correlation")); err != nil {
			return written, err
		}
	}
	for _, m := range res.Metrics {
		p, err := BoxByBucket(res.Bucketed, m)
		if err != nil {
			return written, err
		}
		if err := save(p, FileName(opt.Format, "box", m)); err != nil {
			return written, err
		}
		p, err = Violin(res.Bucketed, m)
		if err != nil {
			return written, err
		}
		if err := save(p, FileName(opt.Format, "violin", m)); err != nil {
			return written, err
		}
		p, err = Density(res.Dataset, m, opt.Bins)
		if err != nil {
			return written, err
		}
		if err := save(p, FileName(opt.Format, "density", m)); err != nil {
			return written, err
		}
	}
	if len(res.Corr.Columns) >= 2 {
		p, err := Heatmap(res.Corr)
		if err != nil {
			return written, err
		}
		if err := save(p, FileName(opt.Format, "correlation_heatmap")); err != nil {
			return written, err
		}
	}
	for _, pair := range ScatterPairs(res) {
		p, err := Scatter(res.Dataset, pair[0], pair[1])
		if err != nil {
			return written, err
		}
		if err := save(p, FileName(opt.Format, "scatter", pair[0], pair[1])); err != nil {
			return written, err
		}
	}
	return written, nil
}
