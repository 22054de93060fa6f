package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/inodb/bakta2gggene/internal/pipeline"
)

// reporter prints the run summary with key values highlighted.
type reporter struct {
	w    io.Writer
	hl   *color.Color
	warn *color.Color
}

func newReporter(w io.Writer) *reporter {
	return &reporter{
		w:    w,
		hl:   color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow),
	}
}

func (r *reporter) start(gene string, files int) {
	fmt.Fprintf(r.w, "Extracting contigs containing %s from %s file(s)\n",
		r.hl.Sprint(gene), r.hl.Sprint(files))
}

func (r *reporter) summary(gene string, sum *pipeline.Summary) {
	for _, m := range sum.Missing {
		fmt.Fprintf(r.w, "%s %s\n", r.warn.Sprint("File does not exist:"), displayPath(m))
	}

	fmt.Fprintf(r.w, "Contigs containing %s found in %s file(s)\n",
		r.hl.Sprint(gene), r.hl.Sprint(len(sum.Results)))
	if len(sum.Results) == 0 {
		fmt.Fprintln(r.w, r.warn.Sprint("Merging will not be performed"))
		return
	}

	fmt.Fprintf(r.w, "Extraction records saved in %s\n", r.hl.Sprint(displayPath(sum.ManifestPath)))
	if sum.Merged {
		fmt.Fprintf(r.w, "Merged %s feature(s) into %s\n",
			r.hl.Sprint(sum.MergedRows), r.hl.Sprint(displayPath(sum.MergedPath)))
		fmt.Fprintf(r.w, "Wrote %s gggenes record(s) to %s\n",
			r.hl.Sprint(sum.Records), r.hl.Sprint(displayPath(sum.GGGenesPath)))
	}
	if sum.GFFPath != "" {
		fmt.Fprintf(r.w, "GFF export saved in %s\n", r.hl.Sprint(displayPath(sum.GFFPath)))
	}
	if sum.Database != "" {
		fmt.Fprintf(r.w, "Neighborhoods loaded into %s\n", r.hl.Sprint(displayPath(sum.Database)))
	}
}
