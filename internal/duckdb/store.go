// Package duckdb stores extracted gene neighborhoods in DuckDB so they can be
// queried across runs (e.g. which genes co-occur with a target gene).
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding neighborhood features.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path, empty for in-memory databases.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS neighborhood_features (
		target_gene VARCHAR,
		file_name VARCHAR,
		sequence_id VARCHAR,
		type VARCHAR,
		start BIGINT,
		stop BIGINT,
		strand VARCHAR,
		gene VARCHAR,
		product VARCHAR,
		is_target BOOLEAN
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS extractions (
		target_gene VARCHAR,
		file_name VARCHAR,
		source_path VARCHAR,
		result_name VARCHAR,
		sequence_ids VARCHAR,
		max_distance BIGINT,
		exact BOOLEAN,
		source_size BIGINT,
		source_mod_time TIMESTAMP,
		PRIMARY KEY (target_gene, file_name)
	)`)
	return err
}
