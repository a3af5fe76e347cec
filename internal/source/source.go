// Package source fetches a tabular resource from a URL or path and decodes it into
// an analysis.Dataset.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/KaramelBytes/wineqa/internal/analysis"
)

// DefaultURL is the canonical red wine quality dataset.
const DefaultURL = "https://archive.ics.uci.edu/ml/machine-learning-databases/wine-quality/winequality-red.csv"

// DefaultTimeout bounds a single HTTP fetch.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBody caps the bytes read from a remote source.
const DefaultMaxBody = 64 << 20

// Options controls fetching and decoding.
type Options struct {
	// Delimiter for delimited text. If 0, it is sniffed from the header line.
	Delimiter rune
	// DecimalSeparator for numbers; 0 means '.'.
	DecimalSeparator rune
	// Sheet selects a workbook sheet by name; empty means the first sheet.
	Sheet string
	// Timeout for HTTP fetches; 0 uses DefaultTimeout.
	Timeout time.Duration
	// Client overrides the HTTP client (tests).
	Client *http.Client
	// MaxBody caps a remote body in bytes; 0 uses DefaultMaxBody. Larger bodies fail.
	MaxBody int64
	Logger *slog.Logger
}

// Load fetches src once and decodes it. src is an http(s) URL or a local path.
// There is no retry: a failed fetch returns *analysis.SourceUnavailableError.
func Load(ctx context.Context, src string, opt Options) (*analysis.Dataset, error) {
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	data, name, err := fetch(ctx, src, opt)
	if err != nil {
		return nil, err
	}
	log.Debug("source fetched", slog.String("source", src), slog.Int("bytes", len(data)))

	dec := decoderFor(name)
	ds, err := dec.Decode(data, opt)
	if err != nil {
		return nil, err
	}
	log.Debug("source decoded", slog.String("decoder", dec.Name()), slog.Int("rows", ds.Rows()), slog.Int("columns", len(ds.Columns())))
	return ds, nil
}

// IsRemote reports whether src is fetched over HTTP.
func IsRemote(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func fetch(ctx context.Context, src string, opt Options) ([]byte, string, error) {
	if strings.TrimSpace(src) == "" {
		return nil, "", &analysis.SourceUnavailableError{Source: src, Err: errors.New("empty source")}
	}
	if !IsRemote(src) {
		b, err := os.ReadFile(src)
		if err != nil {
			return nil, "", &analysis.SourceUnavailableError{Source: src, Err: err}
		}
		return b, src, nil
	}

	client := opt.Client
	if client == nil {
		timeout := opt.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", &analysis.SourceUnavailableError{Source: src, Err: fmt.Errorf("build request: %w", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", &analysis.SourceUnavailableError{Source: src, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &analysis.SourceUnavailableError{Source: src, Status: resp.Status}
	}
	limit := opt.MaxBody
	if limit <= 0 {
		limit = DefaultMaxBody
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", &analysis.SourceUnavailableError{Source: src, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(b)) > limit {
		return nil, "", &analysis.SourceUnavailableError{Source: src, Err: fmt.Errorf("body exceeds %d bytes", limit)}
	}
	u, _ := url.Parse(src)
	return b, path.Base(u.Path), nil
}

// Decoder turns fetched bytes into a Dataset.
type Decoder interface {
	Name() string
	CanDecode(filename string) bool
	Decode(data []byte, opt Options) (*analysis.Dataset, error)
}

var registry []Decoder

// Register adds a decoder. Decoders are tried in registration order; delimited
// text is the fallback.
func Register(d Decoder) {
	registry = append(registry, d)
}

func decoderFor(name string) Decoder {
	for _, d := range registry {
		if d.CanDecode(name) {
			return d
		}
	}
	return delimitedDecoder{}
}

type delimitedDecoder struct{}

func (delimitedDecoder) Name() string { return "delimited" }

func (delimitedDecoder) CanDecode(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func (delimitedDecoder) Decode(data []byte, opt Options) (*analysis.Dataset, error) {
	return analysis.ParseDelimited(bytes.NewReader(data), analysis.ParseOptions{Delimiter: opt.Delimiter, DecimalSeparator: opt.DecimalSeparator})
}

func init() {
	Register(delimitedDecoder{})
	Register(xlsxDecoder{})
}
