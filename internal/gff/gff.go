// Package gff writes extracted neighborhoods as GFF features.
package gff

import (
	"bufio"
	"fmt"
	"io"
	"os"

	biogff "github.com/biogo/biogo/io/featio/gff"
	"github.com/biogo/biogo/seq"

	"github.com/inodb/bakta2gggene/internal/gggenes"
	"github.com/inodb/bakta2gggene/internal/merge"
)

// Source is the GFF source field for every feature.
const Source = "Bakta"

// FromRow converts a merged row to a GFF feature on the row's molecule.
// Bakta coordinates are 1-based closed; biogo features are 0-based half-open.
func FromRow(r merge.Row) *biogff.Feature {
	f := r.Feature
	strand := seq.None
	switch f.Strand {
	case "+":
		strand = seq.Plus
	case "-":
		strand = seq.Minus
	}

	attrs := biogff.Attributes{{Tag: "file_name", Value: r.FileName}}
	if f.Gene != "" {
		attrs = append(attrs, biogff.Attribute{Tag: "gene", Value: f.Gene})
	}
	if f.Product != "" {
		attrs = append(attrs, biogff.Attribute{Tag: "product", Value: fmt.Sprintf("%q", f.Product)})
	}

	return &biogff.Feature{
		SeqName:        gggenes.MoleculeLabel(r.FileName, f.SequenceID),
		Source:         Source,
		Feature:        f.Type,
		FeatStart:      int(f.Start) - 1,
		FeatEnd:        int(f.Stop),
		FeatStrand:     strand,
		FeatFrame:      biogff.NoFrame,
		FeatAttributes: attrs,
	}
}

// Write writes rows as GFF to w and returns the number of features written.
func Write(w io.Writer, rows []merge.Row) (int, error) {
	bw := bufio.NewWriter(w)
	gw := biogff.NewWriter(bw, 60, true)
	for i, r := range rows {
		if _, err := gw.Write(FromRow(r)); err != nil {
			return i, fmt.Errorf("write feature %s:%d: %w", r.Feature.SequenceID, r.Feature.Start, err)
		}
	}
	return len(rows), bw.Flush()
}

// WriteFile writes rows as GFF to path.
func WriteFile(path string, rows []merge.Row) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create gff file: %w", err)
	}
	n, err := Write(f, rows)
	if err != nil {
		f.Close()
		return n, err
	}
	return n, f.Close()
}
