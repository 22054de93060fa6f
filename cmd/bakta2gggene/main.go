// Package main provides the bakta2gggene command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/bakta2gggene/internal/extract"
	"github.com/inodb/bakta2gggene/internal/pipeline"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cobra.OnInitialize(initConfig)
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		if errors.Is(err, pipeline.ErrNoGene) {
			fmt.Fprintln(stderr, "Error: please specify the gene using the -g option.")
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(stderr, "Hint: Check that the file path is correct\n")
			}
		}
		return ExitError
	}
	return ExitSuccess
}

// initConfig reads ~/.bakta2gggene.yaml and BAKTA2GGGENE_* environment variables.
func initConfig() {
	home, _ := os.UserHomeDir()
	if err := readConfig(viper.GetViper(), home); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// readConfig configures v to read .bakta2gggene.yaml from dir and the
// environment. A missing config file is not an error.
func readConfig(v *viper.Viper, dir string) error {
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.SetConfigName(".bakta2gggene")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BAKTA2GGGENE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bakta2gggene [flags] [input.tsv...]",
		Short: "Extract gene neighborhoods from Bakta results for gggenes",
		Long: `Extract the features surrounding a target gene from Bakta annotation
tables (.tsv), optionally merging the results into one table and a gggenes
input file.

Without -i every .tsv file in the input directory is scanned (except files
written by earlier runs) and the results are merged. With -i only the given
files are scanned and results are merged only with -m.`,
		Example: `  # Extract mcr-1.1 from all .tsv files in ./
  bakta2gggene -g mcr-1.1

  # Extract from two files in ./bakta and save results in ./result
  bakta2gggene -d bakta -i input1.tsv -i input2.tsv -o result -g mcr-1.1

  # Merge, widen the window to 10kb and match the gene name exactly
  bakta2gggene -i input1.tsv,input2.tsv -g mcr-1.1 --merge --max 10000 -e

  # Also write a GFF export and load neighborhoods into DuckDB
  bakta2gggene -g mcr-1 --gff --db neighborhoods.duckdb`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceP("input", "i", nil, "Bakta tsv file name(s), repeatable or comma-separated")
	flags.StringP("directory", "d", "./", "Directory of Bakta tsv files")
	flags.StringP("gene", "g", "", "Gene to extract")
	flags.StringP("output", "o", "./", "Output path")
	flags.BoolP("merge", "m", false, "Merge results into one file and generate gggenes input")
	flags.Int64("max", extract.DefaultMaxDistance, "Maximum distance from the target gene")
	flags.BoolP("exact", "e", false, "Match the gene name exactly instead of by prefix")
	flags.Bool("gff", false, "Also write the neighborhoods as GFF")
	flags.String("db", "", "DuckDB database to load neighborhoods into")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Show progress and debug messages")

	for _, name := range []string{"input", "directory", "gene", "output", "merge", "max", "exact", "gff", "db"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
	viper.BindPFlag("verbose", cmd.PersistentFlags().Lookup("verbose"))

	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newNeighborsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bakta2gggene version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// configFromViper collects run options from flags, config file and environment.
// Positional arguments are extra input files.
func configFromViper(args []string) pipeline.Config {
	return pipeline.Config{
		Inputs:      append(viper.GetStringSlice("input"), args...),
		Directory:   viper.GetString("directory"),
		Gene:        viper.GetString("gene"),
		OutputDir:   viper.GetString("output"),
		Merge:       viper.GetBool("merge"),
		MaxDistance: viper.GetInt64("max"),
		Exact:       viper.GetBool("exact"),
		GFF:         viper.GetBool("gff"),
		Database:    viper.GetString("db"),
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := configFromViper(args)
	if cfg.Gene == "" {
		return pipeline.ErrNoGene
	}

	logger, err := newLogger(viper.GetBool("verbose"))
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	files, _, err := pipeline.ResolveInputs(cfg.Directory, cfg.Inputs)
	if err != nil {
		return err
	}

	rep := newReporter(cmd.OutOrStdout())
	rep.start(cfg.Gene, len(files))

	runner := pipeline.New(cfg)
	runner.SetLogger(logger)
	sum, err := runner.Run()
	if err != nil {
		logger.Debug("run failed", zap.Error(err))
		return err
	}

	rep.summary(cfg.Gene, sum)
	return nil
}

// displayPath shortens p relative to the working directory when possible.
func displayPath(p string) string {
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	if rel, err := filepath.Rel(wd, p); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return p
}
