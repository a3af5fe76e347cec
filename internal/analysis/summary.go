package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// FiveNumber is {min, p25, median, p75, max} of a sample.
type FiveNumber struct {
	Min, P25, Median, P75, Max float64
}

// Cell is the summary of one metric within one bucket.
type Cell struct {
	Metric string
	Bucket Bucket
	N      int
	FiveNumber
	Mean float64
	Std  float64 // sample standard deviation; 0 when N < 2
}

// BucketShare is the size of one bucket relative to the whole dataset.
type BucketShare struct {
	Bucket  Bucket
	Count   int
	Percent float64 // exact, count*100/total
	Rounded int     // half-up whole percent
}

// Distribution lists every bucket in declared order, empty ones included.
// Rounded percentages are not adjusted; RoundedSum may differ from 100.
type Distribution struct {
	Total      int
	Shares     []BucketShare
	RoundedSum int
}

// Share returns the share for b.
func (d Distribution) Share(b Bucket) BucketShare {
	for _, s := range d.Shares {
		if s.Bucket == b {
			return s
		}
	}
	return BucketShare{Bucket: b}
}

type cellKey struct {
	metric string
	bucket Bucket
}

// SummaryTable holds per-(metric, bucket) summaries. Use Cell to read a value:
// combinations without observations report InsufficientDataError.
type SummaryTable struct {
	Metrics      []string
	Distribution Distribution
	Overall      map[string]FiveNumber
	cells        map[cellKey]Cell
}

// Cell returns the summary for metric within bucket.
func (t *SummaryTable) Cell(metric string, b Bucket) (Cell, error) {
	c, ok := t.cells[cellKey{metric, b}]
	if !ok || c.N == 0 {
		return Cell{Metric: metric, Bucket: b}, &InsufficientDataError{Stage: StageSummary, Metric: metric, Bucket: b.String(), N: 0, Need: 1}
	}
	return c, nil
}

// MetricColumns returns every column except quality, in dataset order.
func MetricColumns(ds *Dataset) []string {
	out := make([]string, 0, len(ds.names))
	for _, n := range ds.names {
		if n == QualityColumn {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Distribute counts rows per bucket.
func Distribute(b *Bucketed) (Distribution, error) {
	total := len(b.buckets)
	if total == 0 {
		return Distribution{}, &InsufficientDataError{Stage: StageSummary, Metric: QualityColumn, N: 0, Need: 1}
	}
	counts := make(map[Bucket]int, 4)
	for _, bk := range b.buckets {
		counts[bk]++
	}
	d := Distribution{Total: total}
	for _, bk := range Buckets() {
		pct := float64(counts[bk]) * 100 / float64(total)
		r := int(math.Floor(pct + 0.5))
		d.Shares = append(d.Shares, BucketShare{Bucket: bk, Count: counts[bk], Percent: pct, Rounded: r})
		d.RoundedSum += r
	}
	return d, nil
}

// Summarize computes the bucket distribution and the five-number summary of
// every metric within every bucket.
func Summarize(b *Bucketed) (*SummaryTable, error) {
	dist, err := Distribute(b)
	if err != nil {
		return nil, err
	}
	metrics := MetricColumns(b.Dataset)
	if len(metrics) == 0 {
		return nil, &MissingColumnError{Stage: StageSummary, Column: "(any metric)"}
	}

	// One pass over rows fills the (metric, bucket) accumulators.
	acc := make(map[cellKey][]float64, len(metrics)*4)
	for _, m := range metrics {
		vals, _ := b.col(m)
		for i, v := range vals {
			k := cellKey{m, b.buckets[i]}
			acc[k] = append(acc[k], v)
		}
	}

	t := &SummaryTable{
		Metrics:      metrics,
		Distribution: dist,
		Overall:      make(map[string]FiveNumber, len(metrics)),
		cells:        make(map[cellKey]Cell, len(acc)),
	}
	for k, vals := range acc {
		t.cells[k] = reduceCell(k, vals)
	}
	for _, m := range metrics {
		vals, _ := b.col(m)
		t.Overall[m] = fiveNumber(sortedCopy(vals))
	}
	return t, nil
}

func reduceCell(k cellKey, vals []float64) Cell {
	sorted := sortedCopy(vals)
	c := Cell{Metric: k.metric, Bucket: k.bucket, N: len(sorted), FiveNumber: fiveNumber(sorted)}
	if len(sorted) >= 2 {
		c.Mean, c.Std = stat.MeanStdDev(sorted, nil)
	} else {
		c.Mean = stat.Mean(sorted, nil)
	}
	return c
}

func sortedCopy(vals []float64) []float64 {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return cp
}

func fiveNumber(sorted []float64) FiveNumber {
	if len(sorted) == 0 {
		return FiveNumber{}
	}
	return FiveNumber{
		Min:    sorted[0],
		P25:    Quantile(sorted, 0.25),
		Median: Quantile(sorted, 0.5),
		P75:    Quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}
}

// Quantile estimates the q-quantile of sorted values with rank q*(n-1) and linear
// interpolation between adjacent order statistics. sorted must be ascending and non-empty.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*w
}

// Median returns the 0.5 quantile of unsorted values.
func Median(vals []float64) float64 {
	return Quantile(sortedCopy(vals), 0.5)
}
