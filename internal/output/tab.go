// Package output provides table output formatters.
package output

import (
	"bufio"
	"io"
	"strings"
)

// TabWriter writes rows in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
	rows    int
}

// NewTabWriter creates a new tab-delimited writer with the given header.
func NewTabWriter(w io.Writer, columns []string) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: columns,
	}
}

// Columns returns the header columns.
func (tw *TabWriter) Columns() []string {
	return tw.columns
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single row. Values are written as given.
func (tw *TabWriter) Write(values []string) error {
	if _, err := tw.w.WriteString(strings.Join(values, "\t") + "\n"); err != nil {
		return err
	}
	tw.rows++
	return nil
}

// Rows returns the number of rows written, not counting the header.
func (tw *TabWriter) Rows() int {
	return tw.rows
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
