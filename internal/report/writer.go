package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	"github.com/hamed0406/siteprobe/internal/domain"
)

var ErrUnknownFormat = errors.New("unknown report format")

type Format string

const (
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
)

func (f Format) Ext() string { return "." + string(f) }

// ParseFormats accepts names like "csv", "XLSX", "markdown". Duplicates collapse.
func ParseFormats(names []string) ([]Format, error) {
	var out []Format
	seen := map[Format]bool{}
	for _, n := range names {
		var f Format
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "":
			continue
		case "csv":
			f = FormatCSV
		case "xlsx", "excel":
			f = FormatXLSX
		case "html":
			f = FormatHTML
		case "md", "markdown":
			f = FormatMarkdown
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, n)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Writer renders a full result set for one variant.
type Writer interface {
	Write(w io.Writer, v domain.Variant, results []domain.ProbeResult) error
}

// WriterFor returns the writer for f. baseDir is where the report file
// will live; HTML uses it to make screenshot links relative.
func WriterFor(f Format, baseDir string) (Writer, error) {
	switch f {
	case FormatCSV:
		return CSVWriter{}, nil
	case FormatXLSX:
		return XLSXWriter{}, nil
	case FormatHTML:
		return HTMLWriter{BaseDir: baseDir}, nil
	case FormatMarkdown:
		return MarkdownWriter{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// WriteFiles writes dir/base.<ext> for every format and returns the paths
// written. A failing format does not stop the others.
func WriteFiles(dir, base string, formats []Format, v domain.Variant, results []domain.ProbeResult) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report dir: %w", err)
	}
	var (
		paths []string
		errs  error
	)
	for _, f := range formats {
		path := filepath.Join(dir, base+f.Ext())
		if err := writeFile(path, f, dir, v, results); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s report: %w", f, err))
			continue
		}
		paths = append(paths, path)
	}
	return paths, errs
}

func writeFile(path string, f Format, dir string, v domain.Variant, results []domain.ProbeResult) (err error) {
	w, err := WriterFor(f, dir)
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(out))
	return w.Write(out, v, results)
}

// sorted returns a copy of rs in input order.
func sorted(rs []domain.ProbeResult) []domain.ProbeResult {
	cp := make([]domain.ProbeResult, len(rs))
	copy(cp, rs)
	domain.SortByInput(cp)
	return cp
}
