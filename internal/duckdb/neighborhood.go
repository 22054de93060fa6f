package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/bakta2gggene/internal/extract"
	"github.com/inodb/bakta2gggene/internal/merge"
)

// Feature is a stored neighborhood feature.
type Feature struct {
	TargetGene string
	FileName   string
	SequenceID string
	Type       string
	Start      int64
	Stop       int64
	Strand     string
	Gene       string
	Product    string
	IsTarget   bool
}

// GeneCount summarizes how often a gene occurs near a target gene.
type GeneCount struct {
	Gene      string
	Molecules int64 // Distinct file/sequence pairs containing the gene
	Features  int64 // Total feature rows
}

// WriteNeighborhood replaces the stored features for target with rows, using
// the Appender API. Rows whose gene matches the target under mode are flagged
// as target hits.
func (s *Store) WriteNeighborhood(target string, mode extract.MatchMode, rows []merge.Row) error {
	if _, err := s.db.Exec(`DELETE FROM neighborhood_features WHERE target_gene=?`, target); err != nil {
		return fmt.Errorf("clear neighborhood %s: %w", target, err)
	}
	if len(rows) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "neighborhood_features")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range rows {
		f := r.Feature
		if err := appender.AppendRow(
			target, r.FileName, f.SequenceID, f.Type,
			f.Start, f.Stop, f.Strand, f.Gene, f.Product,
			extract.Match(mode, target, f.Gene),
		); err != nil {
			return fmt.Errorf("append feature: %w", err)
		}
	}

	return appender.Flush()
}

// Neighbors returns the genes found near target, most widespread first.
// Target hits and features without a gene name are excluded.
func (s *Store) Neighbors(target string) ([]GeneCount, error) {
	rows, err := s.db.Query(`SELECT
		gene,
		COUNT(DISTINCT file_name || '/' || sequence_id) AS molecules,
		COUNT(*) AS features
		FROM neighborhood_features
		WHERE target_gene=? AND NOT is_target AND gene <> ''
		GROUP BY gene
		ORDER BY molecules DESC, gene`, target)
	if err != nil {
		return nil, fmt.Errorf("query neighbors: %w", err)
	}
	defer rows.Close()

	var counts []GeneCount
	for rows.Next() {
		var c GeneCount
		if err := rows.Scan(&c.Gene, &c.Molecules, &c.Features); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbors: %w", err)
	}
	return counts, nil
}

// Features returns the stored features of target, optionally limited to one
// source file (empty fileName means all), ordered by file, sequence and start.
func (s *Store) Features(target, fileName string) ([]Feature, error) {
	query := `SELECT
		target_gene, file_name, sequence_id, type, start, stop,
		strand, gene, product, is_target
		FROM neighborhood_features
		WHERE target_gene=?`
	args := []any{target}
	if fileName != "" {
		query += ` AND file_name=?`
		args = append(args, fileName)
	}
	query += ` ORDER BY file_name, sequence_id, start`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	var feats []Feature
	for rows.Next() {
		var f Feature
		if err := rows.Scan(
			&f.TargetGene, &f.FileName, &f.SequenceID, &f.Type, &f.Start, &f.Stop,
			&f.Strand, &f.Gene, &f.Product, &f.IsTarget,
		); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		feats = append(feats, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}
	return feats, nil
}

// TargetGenes returns the target genes with stored neighborhoods.
func (s *Store) TargetGenes() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT target_gene FROM neighborhood_features ORDER BY target_gene`)
	if err != nil {
		return nil, fmt.Errorf("query target genes: %w", err)
	}
	defer rows.Close()

	var genes []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan target gene: %w", err)
		}
		genes = append(genes, g)
	}
	return genes, rows.Err()
}
