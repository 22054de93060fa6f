// Package extract pulls the neighborhood of a target gene out of Bakta tables.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/bakta2gggene/internal/bakta"
	"github.com/inodb/bakta2gggene/internal/output"
)

// DefaultMaxDistance is the default padding around target genes in bases.
const DefaultMaxDistance = 5000

// Options configures an Extractor.
type Options struct {
	Gene        string    // Target gene name
	Mode        MatchMode // Prefix or exact matching
	MaxDistance int64     // Padding added on both sides of each hit
	OutputDir   string    // Directory receiving the filtered tables
}

// Result describes one input file that contained the target gene.
type Result struct {
	SourceName  string   // Base name of the input file
	SourcePath  string   // Input path as given
	SequenceIDs []string // Matched sequences in order of first hit
	Windows     []Window // One window per matched sequence, same order
	OutputPath  string   // Filtered table path
	Rows        int      // Rows written, not counting the header
}

// Extractor filters Bakta tables down to the features near a target gene.
type Extractor struct {
	opts   Options
	logger *zap.Logger
}

// New creates an extractor. The gene must be non-empty and the distance
// non-negative.
func New(opts Options) (*Extractor, error) {
	if opts.Gene == "" {
		return nil, errors.New("target gene is required")
	}
	if opts.MaxDistance < 0 {
		return nil, fmt.Errorf("max distance must be non-negative, got %d", opts.MaxDistance)
	}
	return &Extractor{
		opts:   opts,
		logger: zap.NewNop(),
	}, nil
}

// SetLogger sets the logger for progress messages.
func (e *Extractor) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Options returns the extractor configuration.
func (e *Extractor) Options() Options {
	return e.opts
}

// OutputName returns the filtered table name for an input path:
// {gene}_from_{basename}. A trailing .gz is dropped since output is plain text.
func (e *Extractor) OutputName(inputPath string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), ".gz")
	return fmt.Sprintf("%s_from_%s", e.opts.Gene, base)
}

// Extract scans one table and writes every feature lying fully inside the
// window of a sequence that contains the target gene.
// Returns nil, nil when no sequence matched; no output file is left behind.
func (e *Extractor) Extract(path string) (*Result, error) {
	parser, err := bakta.NewParser(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer parser.Close()

	// Window map and row groups are local to this call.
	windows := make(map[string]*Window)
	bySequence := make(map[string][]*bakta.Feature)
	var order []string

	for {
		f, err := parser.Next()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if f == nil {
			break
		}
		bySequence[f.SequenceID] = append(bySequence[f.SequenceID], f)

		if !Match(e.opts.Mode, e.opts.Gene, f.Gene) {
			continue
		}
		e.logger.Debug("target gene hit",
			zap.String("gene", f.Gene),
			zap.String("sequence", f.SequenceID),
			zap.Int64("start", f.Start),
			zap.Int64("stop", f.Stop),
			zap.Int("line", f.Line))

		if w, ok := windows[f.SequenceID]; ok {
			w.extend(f.Start, f.Stop, e.opts.MaxDistance)
		} else {
			windows[f.SequenceID] = newWindow(f.SequenceID, f.Start, f.Stop, e.opts.MaxDistance)
			order = append(order, f.SequenceID)
		}
	}

	outPath := filepath.Join(e.opts.OutputDir, e.OutputName(path))
	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	if len(order) == 0 {
		out.Close()
		if err := os.Remove(outPath); err != nil {
			return nil, fmt.Errorf("remove empty output: %w", err)
		}
		e.logger.Info("no sequences contain target gene",
			zap.String("gene", e.opts.Gene),
			zap.String("file", path))
		return nil, nil
	}

	res := &Result{
		SourceName:  filepath.Base(path),
		SourcePath:  path,
		SequenceIDs: order,
		OutputPath:  outPath,
	}

	tw := output.NewTabWriter(out, parser.Header())
	if err := writeWindows(tw, order, windows, bySequence, res); err != nil {
		out.Close()
		os.Remove(outPath)
		return nil, fmt.Errorf("write %s: %w", outPath, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return nil, fmt.Errorf("close %s: %w", outPath, err)
	}

	e.logger.Info("extracted sequences",
		zap.Strings("sequences", order),
		zap.String("file", filepath.Base(path)),
		zap.String("output", filepath.Base(outPath)),
		zap.Int("rows", res.Rows))

	return res, nil
}

func writeWindows(tw *output.TabWriter, order []string, windows map[string]*Window,
	bySequence map[string][]*bakta.Feature, res *Result) error {
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, seq := range order {
		w := windows[seq]
		res.Windows = append(res.Windows, *w)
		for _, f := range bySequence[seq] {
			if !w.Contains(f.Start, f.Stop) {
				continue
			}
			if err := tw.Write(f.Fields); err != nil {
				return err
			}
		}
	}
	res.Rows = tw.Rows()
	return tw.Flush()
}
