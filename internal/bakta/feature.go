package bakta

// Feature types as written in the Type column.
const (
	TypeCDS  = "cds"
	TypeTRNA = "tRNA"
)

// Feature is one annotated row of a Bakta table.
type Feature struct {
	SequenceID string   // Contig or plasmid identifier
	Type       string   // Feature type (e.g., cds, tRNA)
	Start      int64    // Start position (1-based)
	Stop       int64    // Stop position (1-based, inclusive)
	Strand     string   // "+" or "-"
	Gene       string   // Gene symbol, may be empty
	Product    string   // Product description
	Fields     []string // Raw record in header order
	Line       int      // Source line number
}

// IsForwardStrand returns true if the feature is on the forward strand.
func (f *Feature) IsForwardStrand() bool {
	return f.Strand == "+"
}

// IsCDS returns true for coding sequence features.
func (f *Feature) IsCDS() bool {
	return f.Type == TypeCDS
}
