package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/wineqa/internal/analysis"
	"github.com/KaramelBytes/wineqa/internal/chart"
	"github.com/KaramelBytes/wineqa/internal/utils"
	"github.com/google/uuid"
)

// Bundle file names.
const (
	ReportFile   = "report.md"
	TablesFile   = "tables.xlsx"
	ChartsDir    = "charts"
	ManifestFile = "manifest.json"
)

// BundleOptions controls which artifacts WriteBundle produces.
type BundleOptions struct {
	Source    string
	Charts    bool
	XLSX      bool
	Chart     chart.Options
	SortByAbs bool
	Logger    *slog.Logger
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Artifact is one file written by a run, relative to the bundle directory.
type Artifact struct {
	Kind  string `json:"kind"`
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

// Manifest records a report run on disk.
type Manifest struct {
	RunID      string     `json:"run_id"`
	CreatedAt  time.Time  `json:"created_at"`
	Source     string     `json:"source"`
	Rows       int        `json:"rows"`
	Metrics    []string   `json:"metrics"`
	RoundedSum int        `json:"rounded_sum"`
	Undefined  []string   `json:"undefined_correlations,omitempty"`
	Artifacts  []Artifact `json:"artifacts"`

	// Not serialized: on-disk location of the bundle
	rootDir string
}

// RootDir returns the bundle directory the manifest was read from or written to.
func (m *Manifest) RootDir() string { return m.rootDir }

// WriteBundle writes report.md, and optionally tables.xlsx and charts, under dir,
// then records them in manifest.json. Every file is written atomically.
func WriteBundle(dir string, res *analysis.Result, opt BundleOptions) (*Manifest, error) {
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	now := time.Now
	if opt.Now != nil {
		now = opt.Now
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	m := &Manifest{
		RunID:      uuid.NewString(),
		CreatedAt:  now().UTC(),
		Source:     opt.Source,
		Rows:       res.Dataset.Rows(),
		Metrics:    append([]string(nil), res.Metrics...),
		RoundedSum: res.Summary.Distribution.RoundedSum,
		rootDir:    dir,
	}
	for _, u := range res.Corr.Undefined {
		m.Undefined = append(m.Undefined, u.A+" ~ "+u.B)
	}

	md := Markdown(res, Meta{Source: opt.Source, GeneratedAt: m.CreatedAt, SortByAbs: opt.SortByAbs})
	if err := utils.SafeWriteFile(filepath.Join(dir, ReportFile), []byte(md)); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	m.add("report", ReportFile)
	log.Debug("artifact written", slog.String("path", ReportFile))

	if opt.XLSX {
		if err := WriteWorkbook(filepath.Join(dir, TablesFile), res); err != nil {
			return nil, fmt.Errorf("write workbook: %w", err)
		}
		m.add("tables", TablesFile)
		log.Debug("artifact written", slog.String("path", TablesFile))
	}

	if opt.Charts {
		files, err := chart.RenderAll(filepath.Join(dir, ChartsDir), res, opt.SortByAbs, opt.Chart)
		for _, f := range files {
			m.add("chart", filepath.ToSlash(filepath.Join(ChartsDir, f)))
		}
		if err != nil {
			return nil, fmt.Errorf("render charts: %w", err)
		}
		log.Debug("charts written", slog.Int("count", len(files)))
	}

	if err := m.Save(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) add(kind, rel string) {
	a := Artifact{Kind: kind, Path: rel}
	if info, err := os.Stat(filepath.Join(m.rootDir, filepath.FromSlash(rel))); err == nil {
		a.Bytes = info.Size()
	}
	m.Artifacts = append(m.Artifacts, a)
}

// Save writes manifest.json using atomic write.
func (m *Manifest) Save() error {
	if m.rootDir == "" {
		return errors.New("manifest root directory not set")
	}
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(filepath.Join(m.rootDir, ManifestFile), data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// LoadManifest reads manifest.json from dir.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manifest not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.rootDir = dir
	return &m, nil
}
