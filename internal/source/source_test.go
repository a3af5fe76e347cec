package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaramelBytes/wineqa/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = `"fixed acidity";"citric acid";"pH";"quality"
7.4;0;3.51;5
7.8;0.04;3.26;6
11.2;0.56;3.16;7
`

func TestLoadHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	ds, err := Load(context.Background(), srv.URL+"/winequality-red.csv", Options{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, []string{"fixed acidity", "citric acid", "pH", "quality"}, ds.Columns())
}

func TestLoadHTTPStatusIsSourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.URL+"/missing.csv", Options{})
	var se *analysis.SourceUnavailableError
	require.True(t, errors.As(err, &se), "err = %v", err)
	assert.Contains(t, se.Status, "404")
	assert.Contains(t, err.Error(), "load")
}

func TestLoadHTTPTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := Load(context.Background(), srv.URL+"/slow.csv", Options{Timeout: 50 * time.Millisecond})
	var se *analysis.SourceUnavailableError
	require.True(t, errors.As(err, &se), "err = %v", err)
	assert.Empty(t, se.Status)
}

func TestLoadHTTPBodyOverLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	limit := int64(len(sampleCSV))
	_, err := Load(context.Background(), srv.URL+"/wine.csv", Options{MaxBody: limit - 1})
	var se *analysis.SourceUnavailableError
	require.True(t, errors.As(err, &se), "err = %v", err)
	assert.Contains(t, err.Error(), "body exceeds")

	ds, err := Load(context.Background(), srv.URL+"/wine.csv", Options{MaxBody: limit})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Rows())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), Options{})
	var se *analysis.SourceUnavailableError
	require.True(t, errors.As(err, &se))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadFileSniffsDelimiter(t *testing.T) {
	p := filepath.Join(t.TempDir(), "wine.csv")
	require.NoError(t, os.WriteFile(p, []byte(sampleCSV), 0o644))

	ds, err := Load(context.Background(), p, Options{})
	require.NoError(t, err)
	ph, ok := ds.Column("pH")
	require.True(t, ok)
	assert.Equal(t, []float64{3.51, 3.26, 3.16}, ph)
}

func TestLoadParseErrorPropagates(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(p, []byte("a;quality\n1;5\nx;6\n"), 0o644))

	_, err := Load(context.Background(), p, Options{Delimiter: ';'})
	var pe *analysis.ParseError
	require.True(t, errors.As(err, &pe), "err = %v", err)
	assert.Equal(t, 3, pe.Line)
	assert.Equal(t, "a", pe.Column)
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "Wine"
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))
	rows := [][]interface{}{
		{"fixed acidity", "alcohol", "quality"},
		{7.4, 9.4, 5},
		{7.8, 9.8, 6},
		{8.5, 10.5, 7},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	p := filepath.Join(t.TempDir(), "wine.xlsx")
	require.NoError(t, f.SaveAs(p))

	ds, err := Load(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Rows())
	alc, _ := ds.Column("alcohol")
	assert.Equal(t, []float64{9.4, 9.8, 10.5}, alc)

	ds, err = Load(context.Background(), p, Options{Sheet: "wine"})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Rows())

	_, err = Load(context.Background(), p, Options{Sheet: "Other"})
	var pe *analysis.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, err.Error(), "available sheets: Wine")
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote(DefaultURL))
	assert.True(t, IsRemote("http://example.com/x.csv"))
	assert.False(t, IsRemote("/tmp/x.csv"))
	assert.False(t, IsRemote("data/winequality-red.csv"))
}
