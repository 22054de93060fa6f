package gggenes

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/bakta2gggene/internal/bakta"
)

const mergedTSV = `file_name	#Sequence Id	Type	Start	Stop	Strand	Locus Tag	Gene	Product	DbXrefs
s1	contig_1	cds	100	500	+	T_1	mcr-1.1	phosphoethanolamine transferase, MCR-1
s1	contig_1	cds	100	500	-	T_2	pap2	PAP2 family protein
s1	contig_1	tRNA	600	675	+	T_3		tRNA-Ala
s2	plasmid_1	cds	10	90	-	T_4		hypothetical protein
`

func writeMerged(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcr-1_from_bakta.tsv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestReformat(t *testing.T) {
	out := filepath.Join(t.TempDir(), "mcr-1_to_gggene.csv")
	n, err := New().Reformat(writeMerged(t, mergedTSV), out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	records := readCSV(t, out)
	require.Len(t, records, 4)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, []string{"s1_contig_1", "100", "500", "+", "mcr-1.1", "phosphoethanolamine transferase, MCR-1"}, records[1])
	assert.Equal(t, []string{"s1_contig_1", "500", "100", "-", "pap2", "PAP2 family protein"}, records[2])
	assert.Equal(t, []string{"s2_plasmid_1", "90", "10", "-", "", "hypothetical protein"}, records[3])
}

func TestReformat_QuotesCommas(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.csv")
	_, err := New().Reformat(writeMerged(t, mergedTSV), out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"phosphoethanolamine transferase, MCR-1"`)
}

func TestReformat_MissingColumns(t *testing.T) {
	content := "#Sequence Id\tStart\tStop\tGene\nc\t1\t2\tg\n"
	out := filepath.Join(t.TempDir(), "out.csv")
	_, err := New().Reformat(writeMerged(t, content), out)

	var pe *bakta.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "missing required columns: file_name, Strand, Product, Type", pe.Message)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFromFeature(t *testing.T) {
	f := &bakta.Feature{SequenceID: "contig_1", Type: bakta.TypeCDS, Start: 100, Stop: 500, Strand: "-", Gene: "g"}

	rec, ok := FromFeature("s1.tsv", f)
	require.True(t, ok)
	assert.Equal(t, "s1_contig_1", rec.Molecule)
	assert.Equal(t, int64(500), rec.Start)
	assert.Equal(t, int64(100), rec.End)

	f.Strand = "+"
	rec, ok = FromFeature("s1", f)
	require.True(t, ok)
	assert.Equal(t, int64(100), rec.Start)
	assert.Equal(t, int64(500), rec.End)

	f.Type = bakta.TypeTRNA
	_, ok = FromFeature("s1", f)
	assert.False(t, ok)
}

func TestRecord_Values(t *testing.T) {
	r := Record{Molecule: "m", Start: 5, End: 1, Orientation: "-", Gene: "g", Product: "p"}
	assert.Equal(t, "m,5,1,-,g,p", strings.Join(r.Values(), ","))
}
