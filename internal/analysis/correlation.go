package analysis

import (
	"errors"
	"math"
	"sort"
)

// Sign tags the direction of a correlation.
type Sign string

const (
	SignPositive Sign = "positive"
	SignNegative Sign = "negative"
	SignZero     Sign = "zero"
)

// SignOf tags r by its literal sign.
func SignOf(r float64) Sign {
	switch {
	case r > 0:
		return SignPositive
	case r < 0:
		return SignNegative
	default:
		return SignZero
	}
}

// CorrOptions controls how undefined coefficients are handled.
type CorrOptions struct {
	// AllowUndefined keeps going when a pair has no coefficient: the cell is tagged
	// Defined=false and recorded in Undefined. Otherwise the first such pair is returned as an error.
	AllowUndefined bool
}

// Coefficient is one correlation value. R is meaningful only when Defined.
type Coefficient struct {
	R       float64
	Defined bool
}

// CorrMatrix holds a symmetric Pearson correlation matrix across metric columns.
type CorrMatrix struct {
	Columns   []string
	Values    [][]Coefficient // row-major, Values[i][j]
	Undefined []PairCorr      // pairs (i<j) without a coefficient
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// At returns the coefficient for columns a and b.
func (m *CorrMatrix) At(a, b string) (float64, error) {
	i, j := indexOf(m.Columns, a), indexOf(m.Columns, b)
	if i < 0 {
		return 0, &MissingColumnError{Stage: StageCorrelation, Column: a}
	}
	if j < 0 {
		return 0, &MissingColumnError{Stage: StageCorrelation, Column: b}
	}
	c := m.Values[i][j]
	if !c.Defined {
		return 0, &UndefinedCorrelationError{Stage: StageCorrelation, A: a, B: b, Reason: "zero variance"}
	}
	return c.R, nil
}

// Pairs lists every defined off-diagonal pair (i<j) in column order.
func (m *CorrMatrix) Pairs() []PairCorr {
	var out []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if c := m.Values[i][j]; c.Defined {
				out = append(out, PairCorr{A: m.Columns[i], B: m.Columns[j], R: c.R})
			}
		}
	}
	return out
}

// TopPairs returns up to n defined pairs ordered by |r| descending. The sort is
// stable, so ties keep column order.
func (m *CorrMatrix) TopPairs(n int) []PairCorr {
	pairs := m.Pairs()
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].R) > math.Abs(pairs[j].R)
	})
	if n > 0 && len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}

// TargetCorr is one metric's correlation against the target column.
type TargetCorr struct {
	Metric  string
	R       float64
	Sign    Sign
	Abs     float64
	Defined bool
}

// TargetVector holds each metric's correlation against Target, in column order.
type TargetVector struct {
	Target  string
	Entries []TargetCorr
}

// BySigned returns defined entries ordered by r descending; ties keep column order.
func (v *TargetVector) BySigned() []TargetCorr {
	out := v.defined()
	sort.SliceStable(out, func(i, j int) bool { return out[i].R > out[j].R })
	return out
}

// ByAbs returns defined entries ordered by |r| descending; ties keep column order.
func (v *TargetVector) ByAbs() []TargetCorr {
	out := v.defined()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Abs > out[j].Abs })
	return out
}

// Get returns the entry for metric.
func (v *TargetVector) Get(metric string) (TargetCorr, bool) {
	for _, e := range v.Entries {
		if e.Metric == metric {
			return e, true
		}
	}
	return TargetCorr{}, false
}

func (v *TargetVector) defined() []TargetCorr {
	out := make([]TargetCorr, 0, len(v.Entries))
	for _, e := range v.Entries {
		if e.Defined {
			out = append(out, e)
		}
	}
	return out
}

// Pearson computes the Pearson correlation of x and y. It needs at least two paired
// observations and non-zero variance in both series.
func Pearson(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, &InsufficientDataError{Stage: StageCorrelation, N: min(len(x), len(y)), Need: max(len(x), len(y))}
	}
	n := len(x)
	if n < 2 {
		return 0, &InsufficientDataError{Stage: StageCorrelation, N: n, Need: 2}
	}
	if !hasVariance(x) || !hasVariance(y) {
		return 0, &UndefinedCorrelationError{Stage: StageCorrelation, Reason: "zero variance"}
	}
	var mx, my float64
	for i := 0; i < n; i++ {
		mx += x[i]
		my += y[i]
	}
	mx /= float64(n)
	my /= float64(n)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		dy := y[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, &UndefinedCorrelationError{Stage: StageCorrelation, Reason: "zero variance"}
	}
	r := sxy / math.Sqrt(sxx*syy)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, nil
}

// Correlate computes the pairwise Pearson matrix for metrics.
func Correlate(ds *Dataset, metrics []string, opt CorrOptions) (*CorrMatrix, error) {
	cols := make([][]float64, len(metrics))
	for i, m := range metrics {
		c, ok := ds.col(m)
		if !ok {
			return nil, &MissingColumnError{Stage: StageCorrelation, Column: m}
		}
		cols[i] = c
	}
	n := len(metrics)
	mat := &CorrMatrix{Columns: append([]string(nil), metrics...), Values: make([][]Coefficient, n)}
	for i := range mat.Values {
		mat.Values[i] = make([]Coefficient, n)
	}
	constant := make([]bool, n)
	for i := range cols {
		constant[i] = !hasVariance(cols[i])
		if !constant[i] {
			mat.Values[i][i] = Coefficient{R: 1, Defined: true}
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r, err := Pearson(cols[i], cols[j])
			if err != nil {
				var ue *UndefinedCorrelationError
				if !errors.As(err, &ue) {
					var ie *InsufficientDataError
					if errors.As(err, &ie) {
						ie.Metric = metrics[i] + " ~ " + metrics[j]
					}
					return nil, err
				}
				ue.A, ue.B = metrics[i], metrics[j]
				ue.Reason = varianceReason(metrics[i], metrics[j], constant[i], constant[j])
				if !opt.AllowUndefined {
					return nil, ue
				}
				mat.Undefined = append(mat.Undefined, PairCorr{A: metrics[i], B: metrics[j], R: math.NaN()})
				continue
			}
			mat.Values[i][j] = Coefficient{R: r, Defined: true}
			mat.Values[j][i] = Coefficient{R: r, Defined: true}
		}
	}
	return mat, nil
}

// CorrelateTarget correlates every metric against the target column.
func CorrelateTarget(ds *Dataset, metrics []string, target string, opt CorrOptions) (*TargetVector, error) {
	y, ok := ds.col(target)
	if !ok {
		return nil, &MissingColumnError{Stage: StageTarget, Column: target}
	}
	vec := &TargetVector{Target: target, Entries: make([]TargetCorr, 0, len(metrics))}
	for _, m := range metrics {
		if m == target {
			continue
		}
		x, ok := ds.col(m)
		if !ok {
			return nil, &MissingColumnError{Stage: StageTarget, Column: m}
		}
		r, err := Pearson(x, y)
		if err != nil {
			var ue *UndefinedCorrelationError
			if !errors.As(err, &ue) {
				var ie *InsufficientDataError
				if errors.As(err, &ie) {
					ie.Stage, ie.Metric = StageTarget, m
				}
				return nil, err
			}
			ue.Stage, ue.A, ue.B = StageTarget, m, target
			ue.Reason = varianceReason(m, target, !hasVariance(x), !hasVariance(y))
			if !opt.AllowUndefined {
				return nil, ue
			}
			vec.Entries = append(vec.Entries, TargetCorr{Metric: m, R: math.NaN(), Abs: math.NaN()})
			continue
		}
		vec.Entries = append(vec.Entries, TargetCorr{Metric: m, R: r, Sign: SignOf(r), Abs: math.Abs(r), Defined: true})
	}
	return vec, nil
}

func hasVariance(x []float64) bool {
	for _, v := range x[min(1, len(x)):] {
		if v != x[0] {
			return true
		}
	}
	return false
}

func varianceReason(a, b string, constA, constB bool) string {
	switch {
	case constA && constB:
		return "both " + a + " and " + b + " are constant"
	case constA:
		return a + " is constant"
	case constB:
		return b + " is constant"
	default:
		return "zero variance"
	}
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}
