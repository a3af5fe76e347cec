package analysis

import (
	"fmt"
	"strings"
	"unicode"
)

// CanonicalName lowercases s and replaces every run of characters that are not
// letters or digits with a single '_'. Leading and trailing separators are dropped.
// "citric acid" becomes "citric_acid"; "pH" becomes "ph".
func CanonicalName(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pending = true
	}
	return b.String()
}

// Normalize returns a dataset with canonical column names. It fails with a
// SchemaCollisionError when two distinct headers map to the same name.
func Normalize(ds *Dataset) (*Dataset, error) {
	names := make([]string, len(ds.names))
	origin := make(map[string]string, len(ds.names))
	for i, orig := range ds.names {
		c := CanonicalName(orig)
		if c == "" {
			c = fmt.Sprintf("column_%d", i+1)
		}
		if prev, ok := origin[c]; ok {
			return nil, &SchemaCollisionError{Canonical: c, First: prev, Second: orig}
		}
		origin[c] = orig
		names[i] = c
	}
	return ds.withNames(names), nil
}
