package analysis

import (
	"fmt"
	"strings"
)

// Stage names used in error messages.
const (
	StageLoad        = "load"
	StageNormalize   = "normalize"
	StageBucket      = "bucket"
	StageSummary     = "summary"
	StageCorrelation = "correlation"
	StageTarget      = "target"
)

// SourceUnavailableError indicates the source could not be fetched or opened.
type SourceUnavailableError struct {
	Source string
	Status string // HTTP status when the server answered
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	if e == nil {
		return "source unavailable"
	}
	if e.Status != "" {
		return fmt.Sprintf("%s: source unavailable at %s: unexpected status %s", StageLoad, e.Source, e.Status)
	}
	return fmt.Sprintf("%s: source unavailable at %s: %v", StageLoad, e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// ParseError reports malformed delimited content or an invalid cell value.
// Line is 1-based and counts the header; 0 means unknown. Row is the 1-based
// data row, set instead of Line for sources without physical lines.
type ParseError struct {
	Stage  string
	Line   int
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	stage := e.Stage
	if stage == "" {
		stage = StageLoad
	}
	b.WriteString(stage)
	b.WriteString(": parse error")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	} else if e.Row > 0 {
		fmt.Fprintf(&b, " at row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ", column %q", e.Column)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, ", value %q", e.Value)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaCollisionError indicates two distinct headers share a canonical name.
type SchemaCollisionError struct {
	Canonical string
	First     string
	Second    string
}

func (e *SchemaCollisionError) Error() string {
	return fmt.Sprintf("%s: schema collision: %q and %q both normalize to %q", StageNormalize, e.First, e.Second, e.Canonical)
}

// MissingColumnError indicates a stage needed a column the dataset lacks.
type MissingColumnError struct {
	Stage  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: missing column %q", e.Stage, e.Column)
}

// InsufficientDataError indicates a group or series too small for the requested statistic.
type InsufficientDataError struct {
	Stage  string
	Metric string
	Bucket string
	N      int
	Need   int
}

func (e *InsufficientDataError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: insufficient data", e.Stage)
	if e.Metric != "" {
		fmt.Fprintf(&b, " for %q", e.Metric)
	}
	if e.Bucket != "" {
		fmt.Fprintf(&b, " in bucket %q", e.Bucket)
	}
	fmt.Fprintf(&b, " (n=%d, need %d)", e.N, e.Need)
	return b.String()
}

// UndefinedCorrelationError indicates a correlation that has no value, typically
// because one of the series is constant.
type UndefinedCorrelationError struct {
	Stage  string
	A, B   string
	Reason string
}

func (e *UndefinedCorrelationError) Error() string {
	stage := e.Stage
	if stage == "" {
		stage = StageCorrelation
	}
	a, b := e.A, e.B
	if a == "" {
		a = "x"
	}
	if b == "" {
		b = "y"
	}
	return fmt.Sprintf("%s: correlation %s ~ %s undefined: %s", stage, a, b, e.Reason)
}
