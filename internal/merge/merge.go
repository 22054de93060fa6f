// Package merge concatenates extraction results into a single table.
package merge

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/bakta2gggene/internal/bakta"
	"github.com/inodb/bakta2gggene/internal/extract"
	"github.com/inodb/bakta2gggene/internal/output"
)

// ColFileName is the column prepended to every merged row.
const ColFileName = "file_name"

// ErrNoResults is returned when there is nothing to merge.
var ErrNoResults = errors.New("no extraction results to merge")

// Row is a feature tagged with the file it was extracted from.
type Row struct {
	FileName string
	Feature  *bakta.Feature
}

// Values returns the row as written to the merged table.
func (r Row) Values() []string {
	return append([]string{r.FileName}, r.Feature.Fields...)
}

// SourceLabel returns the file_name value for an input file name. A gzip
// input is labelled like its uncompressed table.
func SourceLabel(name string) string {
	return strings.TrimSuffix(strings.TrimSuffix(name, ".gz"), ".tsv")
}

// Merger concatenates extractor outputs.
type Merger struct {
	logger *zap.Logger
}

// New creates a merger.
func New() *Merger {
	return &Merger{logger: zap.NewNop()}
}

// SetLogger sets the logger for progress messages.
func (m *Merger) SetLogger(l *zap.Logger) {
	m.logger = l
}

// Merge writes the merged table to outPath and returns the merged rows.
func (m *Merger) Merge(results []*extract.Result, outPath string) ([]Row, error) {
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("create merged file: %w", err)
	}

	rows, err := m.MergeTo(out, results)
	if err != nil {
		out.Close()
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("close merged file: %w", err)
	}

	m.logger.Info("merged results",
		zap.Int("files", len(results)),
		zap.Int("rows", len(rows)),
		zap.String("output", outPath))
	return rows, nil
}

// MergeTo writes the merged table to w. The header is taken from the first
// result; later results are aligned to it by column name.
func (m *Merger) MergeTo(w io.Writer, results []*extract.Result) ([]Row, error) {
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	var (
		tw   *output.TabWriter
		rows []Row
	)
	for _, res := range results {
		feats, header, err := readResult(res.OutputPath)
		if err != nil {
			return nil, err
		}

		if tw == nil {
			tw = output.NewTabWriter(w, append([]string{ColFileName}, header...))
			if err := tw.WriteHeader(); err != nil {
				return nil, fmt.Errorf("write merged header: %w", err)
			}
		}

		align, err := alignment(tw.Columns()[1:], header)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", res.OutputPath, err)
		}

		label := SourceLabel(res.SourceName)
		for _, f := range feats {
			if align != nil {
				f.Fields = align(f.Fields)
			}
			row := Row{FileName: label, Feature: f}
			if err := tw.Write(row.Values()); err != nil {
				return nil, fmt.Errorf("write merged row: %w", err)
			}
			rows = append(rows, row)
		}
		m.logger.Debug("merged result",
			zap.String("file", label),
			zap.Int("rows", len(feats)))
	}

	if err := tw.Flush(); err != nil {
		return nil, fmt.Errorf("flush merged table: %w", err)
	}
	return rows, nil
}

func readResult(path string) ([]*bakta.Feature, []string, error) {
	p, err := bakta.NewTableParser(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	defer p.Close()

	var feats []*bakta.Feature
	for {
		f, err := p.Next()
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		if f == nil {
			break
		}
		feats = append(feats, f)
	}
	return feats, p.Header(), nil
}

// alignment returns a function reordering records with the given header into
// the target column order, or nil when the headers are identical. Columns
// missing from header are left empty; columns unknown to target are an error.
func alignment(target, header []string) (func([]string) []string, error) {
	if slices.Equal(target, header) {
		return nil, nil
	}

	pos := make(map[string]int, len(target))
	for i, col := range target {
		pos[col] = i
	}
	for _, col := range header {
		if _, ok := pos[col]; !ok {
			return nil, fmt.Errorf("column %q not present in merged header", col)
		}
	}

	return func(fields []string) []string {
		out := make([]string, len(target))
		for i, col := range header {
			out[pos[col]] = fields[i]
		}
		return out
	}, nil
}
