// Package bakta provides parsing of Bakta annotation tables (.tsv).
package bakta

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Standard Bakta column names
const (
	ColSequenceID = "#Sequence Id"
	ColType       = "Type"
	ColStart      = "Start"
	ColStop       = "Stop"
	ColStrand     = "Strand"
	ColGene       = "Gene"
	ColProduct    = "Product"
)

// BannerLines is the number of lines Bakta writes before the column header.
const BannerLines = 2

// ColumnIndices holds the indices of the Bakta columns used by the pipeline.
// A value of -1 means the column is absent.
type ColumnIndices struct {
	SequenceID int
	Type       int
	Start      int
	Stop       int
	Strand     int
	Gene       int
	Product    int
}

// ParseError represents an error encountered while parsing a table.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Parser reads features from a Bakta table.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	header     []string
	columns    ColumnIndices
}

// NewParser opens a Bakta annotation table, skipping its banner lines.
// Supports both plain and gzipped (.tsv.gz) files.
func NewParser(path string) (*Parser, error) {
	return open(path, BannerLines)
}

// NewTableParser opens a table whose first line is the column header, such
// as the files written by the extractor and the merger.
func NewTableParser(path string) (*Parser, error) {
	return open(path, 0)
}

// NewParserFromReader creates a parser from an io.Reader, skipping the given
// number of banner lines before the header.
func NewParserFromReader(r io.Reader, banner int) (*Parser, error) {
	p := &Parser{reader: bufio.NewReader(r)}
	if err := p.parseHeader(banner); err != nil {
		return nil, err
	}
	return p, nil
}

func open(path string, banner int) (*Parser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bakta table: %w", err)
	}

	p := &Parser{file: file}

	br := bufio.NewReader(file)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = br
	}

	if err := p.parseHeader(banner); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// readLine returns the next line without its terminator. The final line of
// a file may lack a newline.
func (p *Parser) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if err != io.EOF || line == "" {
			return "", err
		}
	}
	p.lineNumber++
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *Parser) parseHeader(banner int) error {
	for i := 0; i < banner; i++ {
		if _, err := p.readLine(); err != nil {
			if err == io.EOF {
				return &ParseError{Line: p.lineNumber, Message: "unexpected end of file in banner"}
			}
			return fmt.Errorf("read banner: %w", err)
		}
	}

	line, err := p.readLine()
	if err != nil {
		if err == io.EOF {
			return &ParseError{Line: p.lineNumber, Message: "no header line found"}
		}
		return fmt.Errorf("read header: %w", err)
	}

	p.header = strings.Split(line, "\t")
	p.columns = indexColumns(p.header)

	var missing []string
	for _, req := range []struct {
		name string
		idx  int
	}{
		{ColSequenceID, p.columns.SequenceID},
		{ColStart, p.columns.Start},
		{ColStop, p.columns.Stop},
		{ColGene, p.columns.Gene},
	} {
		if req.idx < 0 {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
		}
	}
	return nil
}

func indexColumns(header []string) ColumnIndices {
	cols := ColumnIndices{
		SequenceID: -1,
		Type:       -1,
		Start:      -1,
		Stop:       -1,
		Strand:     -1,
		Gene:       -1,
		Product:    -1,
	}
	for i, col := range header {
		switch col {
		case ColSequenceID:
			cols.SequenceID = i
		case ColType:
			cols.Type = i
		case ColStart:
			cols.Start = i
		case ColStop:
			cols.Stop = i
		case ColStrand:
			cols.Strand = i
		case ColGene:
			cols.Gene = i
		case ColProduct:
			cols.Product = i
		}
	}
	return cols
}

// Next reads the next feature.
// Returns nil, nil when there are no more features.
func (p *Parser) Next() (*Feature, error) {
	for {
		line, err := p.readLine()
		if err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read line %d: %w", p.lineNumber+1, err)
		}
		if line == "" {
			continue
		}
		return p.parseLine(line)
	}
}

func (p *Parser) parseLine(line string) (*Feature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) > len(p.header) {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected %d columns, got %d", len(p.header), len(fields)),
		}
	}
	for len(fields) < len(p.header) {
		fields = append(fields, "")
	}

	start, err := strconv.ParseInt(fields[p.columns.Start], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid %s %q", ColStart, fields[p.columns.Start]),
		}
	}
	stop, err := strconv.ParseInt(fields[p.columns.Stop], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid %s %q", ColStop, fields[p.columns.Stop]),
		}
	}

	return &Feature{
		SequenceID: fields[p.columns.SequenceID],
		Type:       field(fields, p.columns.Type),
		Start:      start,
		Stop:       stop,
		Strand:     field(fields, p.columns.Strand),
		Gene:       fields[p.columns.Gene],
		Product:    field(fields, p.columns.Product),
		Fields:     fields,
		Line:       p.lineNumber,
	}, nil
}

func field(fields []string, idx int) string {
	if idx < 0 {
		return ""
	}
	return fields[idx]
}

// Header returns the column names in file order.
func (p *Parser) Header() []string {
	return p.header
}

// Columns returns the parsed column indices.
func (p *Parser) Columns() ColumnIndices {
	return p.columns
}

// ColumnIndex returns the index of the named column, or -1 if absent.
func (p *Parser) ColumnIndex(name string) int {
	for i, col := range p.header {
		if col == name {
			return i
		}
	}
	return -1
}

// LineNumber returns the current line number.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and releases resources.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}
