package output

import (
	"fmt"
	"io"
	"strings"
)

// ManifestColumns are the columns of the extraction records table.
var ManifestColumns = []string{"file_name", "sequence_id", "result_name"}

// ManifestEntry describes one successful extraction.
type ManifestEntry struct {
	FileName    string
	SequenceIDs []string
	ResultName  string
}

// WriteManifest writes the extraction records table.
// Sequence ids of one file are joined with commas.
func WriteManifest(w io.Writer, entries []ManifestEntry) error {
	tw := NewTabWriter(w, ManifestColumns)
	if err := tw.WriteHeader(); err != nil {
		return fmt.Errorf("write manifest header: %w", err)
	}
	for _, e := range entries {
		if err := tw.Write([]string{e.FileName, strings.Join(e.SequenceIDs, ","), e.ResultName}); err != nil {
			return fmt.Errorf("write manifest entry %s: %w", e.FileName, err)
		}
	}
	return tw.Flush()
}
