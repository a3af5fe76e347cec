package analysis

import (
	"fmt"
	"log/slog"
)

// Options controls the analysis pipeline.
type Options struct {
	Corr CorrOptions
	// Logger receives debug records per stage. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the fail-fast configuration.
func DefaultOptions() Options {
	return Options{}
}

// Result bundles every table the pipeline produces.
type Result struct {
	Dataset  *Dataset // normalized
	Bucketed *Bucketed
	Metrics  []string
	Summary  *SummaryTable
	Corr     *CorrMatrix
	Target   *TargetVector
}

// Analyze runs Normalize, Bucketize, Summarize, Correlate and CorrelateTarget
// in order and stops at the first failure.
func Analyze(raw *Dataset, opt Options) (*Result, error) {
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	ds, err := Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize columns: %w", err)
	}
	log.Debug("columns normalized", slog.Any("columns", ds.Columns()))

	b, err := Bucketize(ds)
	if err != nil {
		return nil, fmt.Errorf("derive quality buckets: %w", err)
	}
	metrics := MetricColumns(ds)

	sum, err := Summarize(b)
	if err != nil {
		return nil, fmt.Errorf("summarize metrics: %w", err)
	}
	log.Debug("summary computed", slog.Int("rows", sum.Distribution.Total), slog.Int("metrics", len(metrics)))

	corr, err := Correlate(ds, metrics, opt.Corr)
	if err != nil {
		return nil, fmt.Errorf("correlate metrics: %w", err)
	}
	if len(corr.Undefined) > 0 {
		log.Debug("undefined correlations", slog.Int("pairs", len(corr.Undefined)))
	}

	target, err := CorrelateTarget(ds, metrics, QualityColumn, opt.Corr)
	if err != nil {
		return nil, fmt.Errorf("correlate with %s: %w", QualityColumn, err)
	}
	return &Result{Dataset: ds, Bucketed: b, Metrics: metrics, Summary: sum, Corr: corr, Target: target}, nil
}

// Grouped returns the values of metric split by bucket, in row order within each bucket.
func (b *Bucketed) Grouped(metric string) (map[Bucket][]float64, error) {
	vals, ok := b.col(metric)
	if !ok {
		return nil, &MissingColumnError{Stage: StageSummary, Column: metric}
	}
	out := make(map[Bucket][]float64, 4)
	for i, v := range vals {
		out[b.buckets[i]] = append(out[b.buckets[i]], v)
	}
	return out, nil
}
