package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/wineqa/internal/analysis"
	"github.com/KaramelBytes/wineqa/internal/chart"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/plot/vg"
)

// Eight rows with qualities 3,5,5,6,6,6,7,8: shares 12.5/25/37.5/25 round to 13/25/38/25.
const bucketCSV = `alcohol;volatile acidity;quality
9.0;0.9;3
9.4;0.7;5
9.6;0.8;5
10.0;0.5;6
10.2;0.6;6
10.4;0.4;6
11.0;0.3;7
12.0;0.2;8
`

func analyze(t *testing.T, csv string, opt analysis.Options) *analysis.Result {
	t.Helper()
	raw, err := analysis.ParseDelimited(strings.NewReader(csv), analysis.ParseOptions{})
	require.NoError(t, err)
	res, err := analysis.Analyze(raw, opt)
	require.NoError(t, err)
	return res
}

func TestMarkdownSections(t *testing.T) {
	res := analyze(t, bucketCSV, analysis.DefaultOptions())
	md := Markdown(res, Meta{Source: "fixture.csv", GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)})

	for _, s := range []string{"[DATASET SUMMARY]", "[QUALITY BUCKETS]", "[FIVE-NUMBER SUMMARY]", "[CORRELATIONS]", "[QUALITY CORRELATION]", "[NOTES]"} {
		assert.Contains(t, md, s)
	}
	assert.Contains(t, md, "Source: fixture.csv")
	assert.Contains(t, md, "Generated: 2026-01-02T03:04:05Z")
	assert.Contains(t, md, "Rows: 8")
	assert.Contains(t, md, "- 3to4: 1 rows (12.50%, rounded 13%)")
	assert.Contains(t, md, "- 6: 3 rows (37.50%, rounded 38%)")
	assert.Contains(t, md, "rounded shares sum to 101%")
	assert.Contains(t, md, "sum to 101%, not 100%")

	// buckets in declared order
	i34 := strings.Index(md, "- 3to4:")
	i5 := strings.Index(md, "- 5:")
	i6 := strings.Index(md, "- 6:")
	i78 := strings.Index(md, "- 7to8:")
	assert.True(t, i34 < i5 && i5 < i6 && i6 < i78, "bucket order in %q", md)

	assert.Contains(t, md, "| 7to8 | 2 | 11 | 11.25 | 11.5 | 11.75 | 12 | 11.5 | 0.7071 |")
	assert.Contains(t, md, "- alcohol ~ volatile_acidity: r=")
	assert.Contains(t, md, "- alcohol: r=+")
	assert.Contains(t, md, "(positive)")
	assert.Contains(t, md, "- volatile_acidity: r=-")
}

func TestMarkdownEmptyBucketAndUndefined(t *testing.T) {
	csv := "alcohol;flat;quality\n9;1;5\n10;1;5\n11;1;6\n12;1;6\n"
	res := analyze(t, csv, analysis.Options{Corr: analysis.CorrOptions{AllowUndefined: true}})
	md := Markdown(res, Meta{SortByAbs: true})

	assert.Contains(t, md, "| 3to4 | 0 | n/a | n/a |")
	assert.Contains(t, md, "bucket 3to4 has no rows")
	assert.Contains(t, md, "- alcohol ~ flat: undefined")
	assert.Contains(t, md, "- flat: undefined")
	assert.Contains(t, md, "Ordered by |r|")
	assert.NotContains(t, md, "not 100%")
}

func TestWriteBundle(t *testing.T) {
	res := analyze(t, bucketCSV, analysis.DefaultOptions())
	dir := filepath.Join(t.TempDir(), "out")
	fixed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	m, err := WriteBundle(dir, res, BundleOptions{
		Source: "fixture.csv",
		Charts: true,
		XLSX:   true,
		Chart:  chart.Options{Width: 3 * vg.Inch, Height: 2 * vg.Inch, Format: "png"},
		Now:    func() time.Time { return fixed },
	})
	require.NoError(t, err)
	_, err = uuid.Parse(m.RunID)
	require.NoError(t, err)
	assert.Equal(t, 101, m.RoundedSum)

	kinds := map[string]int{}
	for _, a := range m.Artifacts {
		kinds[a.Kind]++
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(a.Path)))
		require.NoError(t, err, a.Path)
		assert.Equal(t, info.Size(), a.Bytes, a.Path)
	}
	assert.Equal(t, 1, kinds["report"])
	assert.Equal(t, 1, kinds["tables"])
	assert.Greater(t, kinds["chart"], 4)

	loaded, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, loaded.RunID)
	assert.True(t, fixed.Equal(loaded.CreatedAt))
	assert.Equal(t, dir, loaded.RootDir())

	f, err := excelize.OpenFile(filepath.Join(dir, TablesFile))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetBuckets, SheetSummary, SheetCorrelation, SheetQualityCorr}, f.GetSheetList())
	rows, err := f.GetRows(SheetBuckets)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"bucket", "count", "percent", "rounded_percent"}, rows[0])
	assert.Equal(t, "3to4", rows[1][0])
	assert.Equal(t, "13", rows[1][3])
	assert.Equal(t, "101", rows[5][3])

	corr, err := f.GetRows(SheetCorrelation)
	require.NoError(t, err)
	require.Len(t, corr, 3)
	assert.Equal(t, "1", corr[1][1])
}

func TestWriteBundleReportOnly(t *testing.T) {
	res := analyze(t, bucketCSV, analysis.DefaultOptions())
	dir := t.TempDir()
	m, err := WriteBundle(dir, res, BundleOptions{})
	require.NoError(t, err)
	require.Len(t, m.Artifacts, 1)
	assert.Equal(t, ReportFile, m.Artifacts[0].Path)
	_, err = os.Stat(filepath.Join(dir, TablesFile))
	assert.True(t, os.IsNotExist(err))
}

func TestLoadManifestMissing(t *testing.T) {
	_, err := LoadManifest(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest not found")
}
