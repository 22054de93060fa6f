package duckdb

import (
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for an input table.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Same reports whether two fingerprints describe the same file content
// by size and modification time. Times are compared at microsecond
// precision, the resolution of a DuckDB TIMESTAMP.
func (fp FileFingerprint) Same(other FileFingerprint) bool {
	return fp.Size == other.Size &&
		fp.ModTime.Truncate(time.Microsecond).Equal(other.ModTime.Truncate(time.Microsecond))
}
