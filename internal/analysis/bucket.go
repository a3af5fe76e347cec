package analysis

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Bucket is the ordinal quality group. The zero value is not a valid bucket.
type Bucket int

const (
	Bucket3to4 Bucket = iota + 1
	Bucket5
	Bucket6
	Bucket7to8
)

// Quality score domain.
const (
	MinQuality = 0
	MaxQuality = 10
)

var bucketNames = map[Bucket]string{
	Bucket3to4: "3to4",
	Bucket5:    "5",
	Bucket6:    "6",
	Bucket7to8: "7to8",
}

// Buckets returns every bucket in declared order. Grouped output iterates this order.
func Buckets() []Bucket {
	return []Bucket{Bucket3to4, Bucket5, Bucket6, Bucket7to8}
}

func (b Bucket) String() string {
	if s, ok := bucketNames[b]; ok {
		return s
	}
	return "Bucket(" + strconv.Itoa(int(b)) + ")"
}

// Less orders buckets by their declared rank.
func (b Bucket) Less(o Bucket) bool { return b < o }

// ParseBucket resolves a bucket label such as "7to8".
func ParseBucket(s string) (Bucket, error) {
	for _, b := range Buckets() {
		if b.String() == s {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown quality bucket %q", s)
}

// BucketFor maps an integer quality score to its bucket.
func BucketFor(quality int) Bucket {
	switch {
	case quality <= 4:
		return Bucket3to4
	case quality == 5:
		return Bucket5
	case quality == 6:
		return Bucket6
	default:
		return Bucket7to8
	}
}

// Bucketed is a dataset with a quality bucket attached to every row.
type Bucketed struct {
	*Dataset
	buckets []Bucket
}

// Bucket returns the bucket of row i.
func (b *Bucketed) Bucket(i int) Bucket { return b.buckets[i] }

// Bucketize derives the quality bucket for every row. The quality column must hold
// integers within [MinQuality, MaxQuality].
func Bucketize(ds *Dataset) (*Bucketed, error) {
	q, ok := ds.col(QualityColumn)
	if !ok {
		return nil, &MissingColumnError{Stage: StageBucket, Column: QualityColumn}
	}
	out := make([]Bucket, len(q))
	for i, v := range q {
		if v != math.Trunc(v) {
			return nil, ds.rowError(StageBucket, i, QualityColumn,
				strconv.FormatFloat(v, 'g', -1, 64), errors.New("quality is not an integer"))
		}
		if v < MinQuality || v > MaxQuality {
			return nil, ds.rowError(StageBucket, i, QualityColumn,
				strconv.FormatFloat(v, 'g', -1, 64), fmt.Errorf("quality outside [%d,%d]", MinQuality, MaxQuality))
		}
		out[i] = BucketFor(int(v))
	}
	return &Bucketed{Dataset: ds, buckets: out}, nil
}
