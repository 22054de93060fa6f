package pipeline

import (
	"compress/gzip"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/bakta2gggene/internal/duckdb"
)

const banner = "# Annotated with Bakta\n# Software: v1.8.2\n" +
	"#Sequence Id\tType\tStart\tStop\tStrand\tLocus Tag\tGene\tProduct\tDbXrefs\n"

var samples = map[string]string{
	"s1.tsv": banner +
		"contig_1\tcds\t100\t400\t-\tA_1\tpap2\tPAP2 family protein\t\n" +
		"contig_1\tcds\t1000\t2626\t+\tA_2\tmcr-1.1\tphosphoethanolamine transferase MCR-1\t\n" +
		"contig_1\ttRNA\t3000\t3075\t+\tA_3\t\ttRNA-Ala\t\n" +
		"contig_1\tcds\t9000\t9500\t+\tA_4\tfar\tout of window\t\n" +
		"contig_2\tcds\t10\t900\t+\tA_5\tdnaA\tDnaA\t\n",
	"s2.tsv": banner +
		"plasmid_1\tcds\t50\t1676\t-\tB_1\tmcr-1.10\tphosphoethanolamine transferase MCR-1\t\n" +
		"plasmid_1\tcds\t1800\t2100\t-\tB_2\tpap2\tPAP2 family protein\t\n",
	"s3.tsv": banner +
		"contig_1\tcds\t10\t900\t+\tC_1\tdnaA\tDnaA\t\n",
}

func writeSamples(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range samples {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Count(string(data), "\n")
}

func TestResolveInputs_Directory(t *testing.T) {
	dir := writeSamples(t)
	for _, name := range []string{"mcr_from_s1.tsv", "mcr_records.tsv", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.tsv"), 0755))

	files, merge, err := ResolveInputs(dir, nil)
	require.NoError(t, err)
	assert.True(t, merge)
	assert.Equal(t, []string{
		filepath.Join(dir, "s1.tsv"),
		filepath.Join(dir, "s2.tsv"),
		filepath.Join(dir, "s3.tsv"),
	}, files)
}

func TestResolveInputs_Explicit(t *testing.T) {
	files, merge, err := ResolveInputs("data", []string{"a.tsv", "/abs/b.tsv"})
	require.NoError(t, err)
	assert.False(t, merge)
	assert.Equal(t, []string{filepath.Join("data", "a.tsv"), "/abs/b.tsv"}, files)
}

func TestResolveInputs_MissingDirectory(t *testing.T) {
	_, _, err := ResolveInputs(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

func TestRun_NoGene(t *testing.T) {
	_, err := New(Config{Directory: t.TempDir()}).Run()
	assert.ErrorIs(t, err, ErrNoGene)
}

func TestRun_DirectoryModeMerges(t *testing.T) {
	dir := writeSamples(t)
	out := filepath.Join(t.TempDir(), "results")

	sum, err := New(Config{Directory: dir, Gene: "mcr-1.1", OutputDir: out, MaxDistance: 5000}).Run()
	require.NoError(t, err)

	// s3 has no hit and is left out of the manifest.
	require.Len(t, sum.Results, 2)
	assert.Equal(t, "s1.tsv", sum.Results[0].SourceName)
	assert.Equal(t, "s2.tsv", sum.Results[1].SourceName)
	assert.NoFileExists(t, filepath.Join(out, "mcr-1.1_from_s3.tsv"))

	assert.True(t, sum.Merged)
	assert.Equal(t, filepath.Join(out, "mcr-1.1_records.tsv"), sum.ManifestPath)
	assert.Equal(t, 3, countLines(t, sum.ManifestPath))

	// Merged row count is the sum of the extractor outputs.
	assert.Equal(t, 3+2, sum.MergedRows)
	assert.Equal(t, sum.MergedRows+1, countLines(t, sum.MergedPath))

	f, err := os.Open(sum.GGGenesPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	// tRNA row dropped.
	assert.Equal(t, 4, sum.Records)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"s1_contig_1", "400", "100", "-", "pap2", "PAP2 family protein"}, records[1])
	assert.Equal(t, []string{"s2_plasmid_1", "1676", "50", "-", "mcr-1.10", "phosphoethanolamine transferase MCR-1"}, records[3])
}

func TestRun_ExplicitInputsDoNotMerge(t *testing.T) {
	dir := writeSamples(t)
	out := t.TempDir()

	sum, err := New(Config{
		Directory: dir, Inputs: []string{"s1.tsv", "missing.tsv"},
		Gene: "mcr-1.1", OutputDir: out, MaxDistance: 5000, Exact: true,
	}).Run()
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "missing.tsv")}, sum.Missing)
	require.Len(t, sum.Results, 1)
	assert.False(t, sum.Merged)
	assert.FileExists(t, sum.ManifestPath)
	assert.NoFileExists(t, filepath.Join(out, MergedName("mcr-1.1")))
	assert.NoFileExists(t, filepath.Join(out, GGGenesName("mcr-1.1")))
}

func TestRun_GzipInputLabels(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "s1.tsv.gz"))
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(samples["s1.tsv"]))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	out := t.TempDir()

	sum, err := New(Config{
		Directory: dir, Inputs: []string{"s1.tsv.gz"},
		Gene: "mcr-1.1", OutputDir: out, MaxDistance: 5000, Merge: true,
	}).Run()
	require.NoError(t, err)
	require.Len(t, sum.Results, 1)
	assert.Equal(t, filepath.Join(out, "mcr-1.1_from_s1.tsv"), sum.Results[0].OutputPath)

	merged, err := os.ReadFile(sum.MergedPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(merged), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "s1\tcontig_1\t"), lines[1])

	g, err := os.Open(sum.GGGenesPath)
	require.NoError(t, err)
	defer g.Close()
	records, err := csv.NewReader(g).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"s1_contig_1", "400", "100", "-", "pap2", "PAP2 family protein"}, records[1])
}

func TestRun_WarnsOnReusedOutputName(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"a", "b"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, sub), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, sub, "s1.tsv"), []byte(samples["s1.tsv"]), 0644))
	}

	core, logs := observer.New(zapcore.WarnLevel)
	runner := New(Config{
		Directory: dir, Inputs: []string{filepath.Join("a", "s1.tsv"), filepath.Join("b", "s1.tsv")},
		Gene: "mcr-1.1", OutputDir: t.TempDir(), MaxDistance: 5000,
	})
	runner.SetLogger(zap.New(core))
	sum, err := runner.Run()
	require.NoError(t, err)
	require.Len(t, sum.Results, 2)
	assert.Equal(t, sum.Results[0].OutputPath, sum.Results[1].OutputPath)

	warnings := logs.FilterMessageSnippet("already written").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, filepath.Join(dir, "b", "s1.tsv"), warnings[0].ContextMap()["file"])
	assert.Equal(t, filepath.Join(dir, "a", "s1.tsv"), warnings[0].ContextMap()["previous"])
}

func TestRun_ExplicitInputsWithMergeFlag(t *testing.T) {
	dir := writeSamples(t)
	sum, err := New(Config{
		Directory: dir, Inputs: []string{"s1.tsv", "s2.tsv"},
		Gene: "mcr-1.1", OutputDir: t.TempDir(), MaxDistance: 5000, Merge: true,
	}).Run()
	require.NoError(t, err)
	assert.True(t, sum.Merged)
	assert.FileExists(t, sum.GGGenesPath)
}

func TestRun_NoMatchSkipsMerge(t *testing.T) {
	dir := writeSamples(t)
	out := t.TempDir()

	sum, err := New(Config{Directory: dir, Gene: "vanA", OutputDir: out, Merge: true, GFF: true}).Run()
	require.NoError(t, err)
	assert.Empty(t, sum.Results)
	assert.False(t, sum.Merged)
	assert.Empty(t, sum.ManifestPath)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_FormatErrorAborts(t *testing.T) {
	dir := writeSamples(t)
	bad := banner + "contig_1\tcds\tx\t10\t+\tD_1\tmcr-1.1\tMCR\t\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s0.tsv"), []byte(bad), 0644))

	_, err := New(Config{Directory: dir, Gene: "mcr-1.1", OutputDir: t.TempDir()}).Run()
	assert.ErrorContains(t, err, "s0.tsv")
}

func TestRun_GFFAndDatabase(t *testing.T) {
	dir := writeSamples(t)
	out := t.TempDir()
	dbPath := filepath.Join(out, "db", "neighborhoods.duckdb")

	sum, err := New(Config{
		Directory: dir, Inputs: []string{"s1.tsv", "s2.tsv"},
		Gene: "mcr-1", OutputDir: out, MaxDistance: 5000,
		GFF: true, Database: dbPath,
	}).Run()
	require.NoError(t, err)

	assert.False(t, sum.Merged)
	assert.Equal(t, filepath.Join(out, "mcr-1_neighborhoods.gff"), sum.GFFPath)
	assert.FileExists(t, sum.GFFPath)
	assert.Equal(t, dbPath, sum.Database)

	store, err := duckdb.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	counts, err := store.Neighbors("mcr-1")
	require.NoError(t, err)
	require.NotEmpty(t, counts)
	assert.Equal(t, "pap2", counts[0].Gene)
	assert.Equal(t, int64(2), counts[0].Molecules)

	exts, err := store.Extractions("mcr-1")
	require.NoError(t, err)
	assert.Len(t, exts, 2)
}
