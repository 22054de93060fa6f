// Package pipeline runs extraction, merging and reformatting over a set of
// Bakta tables.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/bakta2gggene/internal/duckdb"
	"github.com/inodb/bakta2gggene/internal/extract"
	"github.com/inodb/bakta2gggene/internal/gff"
	"github.com/inodb/bakta2gggene/internal/gggenes"
	"github.com/inodb/bakta2gggene/internal/merge"
	"github.com/inodb/bakta2gggene/internal/output"
)

// ErrNoGene is returned when no target gene was given.
var ErrNoGene = errors.New("no target gene specified")

// Config holds the options of one run.
type Config struct {
	Inputs      []string // Explicit input files, relative to Directory unless absolute
	Directory   string   // Input directory
	Gene        string   // Target gene
	OutputDir   string   // Output directory, created when missing
	Merge       bool     // Merge results even with explicit inputs
	MaxDistance int64    // Padding around target genes
	Exact       bool     // Exact gene name matching
	GFF         bool     // Also write a GFF export of the neighborhoods
	Database    string   // DuckDB path to load neighborhoods into (optional)
}

// Output file names for a target gene.
func ManifestName(gene string) string { return gene + "_records.tsv" }
func MergedName(gene string) string   { return gene + "_from_bakta.tsv" }
func GGGenesName(gene string) string  { return gene + "_to_gggene.csv" }
func GFFName(gene string) string      { return gene + "_neighborhoods.gff" }

// Summary reports what a run produced.
type Summary struct {
	Files        []string          // Input files considered
	Missing      []string          // Inputs that did not exist
	Results      []*extract.Result // Files containing the target gene
	Merged       bool              // Whether merge and reformat ran
	ManifestPath string
	MergedPath   string
	MergedRows   int
	GGGenesPath  string
	Records      int
	GFFPath      string
	Database     string
}

// Runner executes the pipeline.
type Runner struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a runner for cfg.
func New(cfg Config) *Runner {
	return &Runner{cfg: cfg, logger: zap.NewNop()}
}

// SetLogger sets the logger passed down to every stage.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// ResolveInputs returns the files to scan and whether merging is implied.
// Explicit inputs are joined to dir unless absolute and do not imply a
// merge. Without explicit inputs every .tsv file in dir is used, except
// outputs of earlier runs (names containing _from or _record), and merging
// is implied.
func ResolveInputs(dir string, explicit []string) ([]string, bool, error) {
	if dir == "" {
		dir = "."
	}
	if len(explicit) > 0 {
		files := make([]string, 0, len(explicit))
		for _, f := range explicit {
			if filepath.IsAbs(f) {
				files = append(files, f)
			} else {
				files = append(files, filepath.Join(dir, f))
			}
		}
		return files, false, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, false, fmt.Errorf("list input directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".tsv") {
			continue
		}
		if strings.Contains(name, "_from") || strings.Contains(name, "_record") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, true, nil
}

// Run executes the pipeline. Any fatal error aborts the run.
func (r *Runner) Run() (*Summary, error) {
	cfg := r.cfg
	if cfg.Gene == "" {
		return nil, ErrNoGene
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}

	files, implied, err := ResolveInputs(cfg.Directory, cfg.Inputs)
	if err != nil {
		return nil, err
	}
	r.logger.Info("extracting contigs containing target gene",
		zap.String("gene", cfg.Gene),
		zap.Int("files", len(files)))

	if err := ensureDir(cfg.OutputDir, r.logger); err != nil {
		return nil, err
	}

	ext, err := extract.New(extract.Options{
		Gene:        cfg.Gene,
		Mode:        extract.ParseMatchMode(cfg.Exact),
		MaxDistance: cfg.MaxDistance,
		OutputDir:   cfg.OutputDir,
	})
	if err != nil {
		return nil, err
	}
	ext.SetLogger(r.logger)

	sum := &Summary{Files: files}
	written := make(map[string]string) // output path -> input that produced it
	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				r.logger.Warn("input file does not exist, skipping", zap.String("file", path))
				sum.Missing = append(sum.Missing, path)
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if prev, ok := written[filepath.Join(cfg.OutputDir, ext.OutputName(path))]; ok {
			r.logger.Warn("output file already written in this run, it will be replaced",
				zap.String("file", path),
				zap.String("previous", prev))
		}
		res, err := ext.Extract(path)
		if err != nil {
			return nil, err
		}
		if res != nil {
			written[res.OutputPath] = path
			sum.Results = append(sum.Results, res)
		}
	}

	r.logger.Info("contigs containing target gene found",
		zap.String("gene", cfg.Gene),
		zap.Int("files", len(sum.Results)))
	if len(sum.Results) == 0 {
		r.logger.Info("merging will not be performed")
		return sum, nil
	}

	sum.ManifestPath = filepath.Join(cfg.OutputDir, ManifestName(cfg.Gene))
	if err := writeManifest(sum.ManifestPath, sum.Results); err != nil {
		return nil, err
	}
	r.logger.Info("extraction records saved", zap.String("output", sum.ManifestPath))

	merger := merge.New()
	merger.SetLogger(r.logger)

	var rows []merge.Row
	if cfg.Merge || implied {
		sum.Merged = true
		sum.MergedPath = filepath.Join(cfg.OutputDir, MergedName(cfg.Gene))
		rows, err = merger.Merge(sum.Results, sum.MergedPath)
		if err != nil {
			return nil, err
		}
		sum.MergedRows = len(rows)

		reformatter := gggenes.New()
		reformatter.SetLogger(r.logger)
		sum.GGGenesPath = filepath.Join(cfg.OutputDir, GGGenesName(cfg.Gene))
		sum.Records, err = reformatter.Reformat(sum.MergedPath, sum.GGGenesPath)
		if err != nil {
			return nil, err
		}
	}

	if (cfg.GFF || cfg.Database != "") && rows == nil {
		rows, err = merger.MergeTo(io.Discard, sum.Results)
		if err != nil {
			return nil, err
		}
	}

	if cfg.GFF {
		sum.GFFPath = filepath.Join(cfg.OutputDir, GFFName(cfg.Gene))
		n, err := gff.WriteFile(sum.GFFPath, rows)
		if err != nil {
			return nil, err
		}
		r.logger.Info("gff export written", zap.Int("features", n), zap.String("output", sum.GFFPath))
	}

	if cfg.Database != "" {
		if err := r.load(cfg, ext.Options(), sum.Results, rows); err != nil {
			return nil, err
		}
		sum.Database = cfg.Database
	}

	return sum, nil
}

// load stores the extraction records and neighborhood rows in DuckDB.
func (r *Runner) load(cfg Config, opts extract.Options, results []*extract.Result, rows []merge.Row) error {
	store, err := duckdb.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, res := range results {
		fp, err := duckdb.StatFile(res.SourcePath)
		if err != nil {
			return fmt.Errorf("fingerprint %s: %w", res.SourcePath, err)
		}
		prev, ok, err := store.Extraction(cfg.Gene, res.SourceName)
		if err != nil {
			return err
		}
		if ok && !prev.Source.Same(fp) {
			r.logger.Info("source changed since previous load",
				zap.String("file", res.SourceName),
				zap.Int64("previous_size", prev.Source.Size),
				zap.Int64("size", fp.Size))
		}
		if err := store.WriteExtraction(opts, res, fp); err != nil {
			return err
		}
	}

	if err := store.WriteNeighborhood(cfg.Gene, opts.Mode, rows); err != nil {
		return err
	}
	r.logger.Info("neighborhoods loaded into database",
		zap.String("database", store.Path()),
		zap.Int("features", len(rows)))
	return nil
}

func ensureDir(dir string, logger *zap.Logger) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("output path %s is not a directory", dir)
		}
		logger.Info("results will be saved in output directory", zap.String("dir", dir))
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat output directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	logger.Info("created output directory", zap.String("dir", dir))
	return nil
}

func writeManifest(path string, results []*extract.Result) error {
	entries := make([]output.ManifestEntry, 0, len(results))
	for _, res := range results {
		entries = append(entries, output.ManifestEntry{
			FileName:    res.SourceName,
			SequenceIDs: res.SequenceIDs,
			ResultName:  res.OutputPath,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	if err := output.WriteManifest(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
