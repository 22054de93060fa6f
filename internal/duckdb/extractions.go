package duckdb

import (
	"fmt"
	"strings"
	"time"

	"github.com/inodb/bakta2gggene/internal/extract"
)

// Extraction records one extraction run for a source file.
type Extraction struct {
	TargetGene  string
	FileName    string
	ResultName  string
	SequenceIDs []string
	MaxDistance int64
	Exact       bool
	Source      FileFingerprint
}

// WriteExtraction records res, replacing any earlier record for the same
// target gene and source file.
func (s *Store) WriteExtraction(opts extract.Options, res *extract.Result, fp FileFingerprint) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO extractions VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		opts.Gene, res.SourceName, res.SourcePath, res.OutputPath,
		strings.Join(res.SequenceIDs, ","), opts.MaxDistance, opts.Mode == extract.MatchExact,
		fp.Size, fp.ModTime.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record extraction %s: %w", res.SourceName, err)
	}
	return nil
}

// Extraction returns the stored record for target and fileName.
func (s *Store) Extraction(target, fileName string) (Extraction, bool, error) {
	all, err := s.extractions(`WHERE target_gene=? AND file_name=?`, target, fileName)
	if err != nil || len(all) == 0 {
		return Extraction{}, false, err
	}
	return all[0], true, nil
}

// Extractions returns all stored records for target ordered by file name.
func (s *Store) Extractions(target string) ([]Extraction, error) {
	return s.extractions(`WHERE target_gene=? ORDER BY file_name`, target)
}

func (s *Store) extractions(where string, args ...any) ([]Extraction, error) {
	rows, err := s.db.Query(`SELECT
		target_gene, file_name, source_path, result_name, sequence_ids,
		max_distance, exact, source_size, source_mod_time
		FROM extractions `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}
	defer rows.Close()

	var out []Extraction
	for rows.Next() {
		var (
			e       Extraction
			seqIDs  string
			modTime time.Time
		)
		if err := rows.Scan(
			&e.TargetGene, &e.FileName, &e.Source.Path, &e.ResultName, &seqIDs,
			&e.MaxDistance, &e.Exact, &e.Source.Size, &modTime,
		); err != nil {
			return nil, fmt.Errorf("scan extraction: %w", err)
		}
		if seqIDs != "" {
			e.SequenceIDs = strings.Split(seqIDs, ",")
		}
		e.Source.ModTime = modTime
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extractions: %w", err)
	}
	return out, nil
}
