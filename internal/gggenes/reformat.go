// Package gggenes converts merged neighborhood tables into gggenes input.
package gggenes

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/bakta2gggene/internal/bakta"
	"github.com/inodb/bakta2gggene/internal/merge"
)

// Columns is the header of the gggenes input file.
var Columns = []string{"molecule", "start", "end", "orientation", "gene", "product"}

// Record is one gene arrow in a gggenes plot.
type Record struct {
	Molecule    string
	Start       int64
	End         int64
	Orientation string
	Gene        string
	Product     string
}

// Values returns the record in column order.
func (r Record) Values() []string {
	return []string{
		r.Molecule,
		strconv.FormatInt(r.Start, 10),
		strconv.FormatInt(r.End, 10),
		r.Orientation,
		r.Gene,
		r.Product,
	}
}

// MoleculeLabel joins a source label and a sequence id.
func MoleculeLabel(fileName, sequenceID string) string {
	return strings.TrimSuffix(fileName, ".tsv") + "_" + sequenceID
}

// FromFeature converts a merged feature. Only coding sequences are kept.
// Reverse-strand coordinates are swapped, not sorted, so start > end encodes
// the orientation.
func FromFeature(fileName string, f *bakta.Feature) (Record, bool) {
	if !f.IsCDS() {
		return Record{}, false
	}
	r := Record{
		Molecule:    MoleculeLabel(fileName, f.SequenceID),
		Start:       f.Start,
		End:         f.Stop,
		Orientation: f.Strand,
		Gene:        f.Gene,
		Product:     f.Product,
	}
	if !f.IsForwardStrand() {
		r.Start, r.End = f.Stop, f.Start
	}
	return r, true
}

// Reformatter converts merged tables.
type Reformatter struct {
	logger *zap.Logger
}

// New creates a reformatter.
func New() *Reformatter {
	return &Reformatter{logger: zap.NewNop()}
}

// SetLogger sets the logger for progress messages.
func (r *Reformatter) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Reformat reads the merged table at mergedPath and writes the gggenes CSV
// to outPath. Returns the number of records written.
func (r *Reformatter) Reformat(mergedPath, outPath string) (int, error) {
	p, err := bakta.NewTableParser(mergedPath)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", mergedPath, err)
	}
	defer p.Close()

	fileNameIdx, err := requireColumns(p)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", mergedPath, err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("create gggenes file: %w", err)
	}

	n, skipped, err := r.convert(p, fileNameIdx, out)
	if err != nil {
		out.Close()
		return 0, fmt.Errorf("%s: %w", mergedPath, err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close gggenes file: %w", err)
	}

	r.logger.Info("generated gggenes input",
		zap.Int("records", n),
		zap.Int("skipped_non_cds", skipped),
		zap.String("output", outPath))
	return n, nil
}

func (r *Reformatter) convert(p *bakta.Parser, fileNameIdx int, w io.Writer) (written, skipped int, err error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return 0, 0, fmt.Errorf("write header: %w", err)
	}
	for {
		f, err := p.Next()
		if err != nil {
			return 0, 0, err
		}
		if f == nil {
			break
		}
		rec, ok := FromFeature(f.Fields[fileNameIdx], f)
		if !ok {
			skipped++
			continue
		}
		if err := cw.Write(rec.Values()); err != nil {
			return 0, 0, fmt.Errorf("write record: %w", err)
		}
		written++
	}
	cw.Flush()
	return written, skipped, cw.Error()
}

// requireColumns checks the merged-table columns beyond those the parser
// already requires and returns the file_name index.
func requireColumns(p *bakta.Parser) (int, error) {
	var missing []string
	for _, col := range []string{merge.ColFileName, bakta.ColStrand, bakta.ColProduct, bakta.ColType} {
		if p.ColumnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return -1, &bakta.ParseError{
			Line:    p.LineNumber(),
			Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
		}
	}
	return p.ColumnIndex(merge.ColFileName), nil
}
