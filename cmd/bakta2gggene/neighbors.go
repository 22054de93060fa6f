package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/bakta2gggene/internal/duckdb"
	"github.com/inodb/bakta2gggene/internal/output"
)

func newNeighborsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "neighbors",
		Short: "Summarize genes found near a target gene",
		Long: `Query a neighborhood database written with --db. For a target gene, list
every neighboring gene with the number of molecules and features it occurs
in. Without -g, list the target genes stored in the database.`,
		Example: `  bakta2gggene neighbors --db neighborhoods.duckdb
  bakta2gggene neighbors --db neighborhoods.duckdb -g mcr-1.1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			if dbPath == "" {
				dbPath = viper.GetString("db")
			}
			if dbPath == "" {
				return fmt.Errorf("no database specified (use --db)")
			}
			gene, _ := cmd.Flags().GetString("gene")
			return runNeighbors(cmd, dbPath, gene)
		},
	}

	cmd.Flags().String("db", "", "DuckDB neighborhood database")
	cmd.Flags().StringP("gene", "g", "", "Target gene")

	return cmd
}

func runNeighbors(cmd *cobra.Command, dbPath, gene string) error {
	store, err := duckdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if gene == "" {
		genes, err := store.TargetGenes()
		if err != nil {
			return err
		}
		tw := output.NewTabWriter(cmd.OutOrStdout(), []string{"target_gene"})
		if err := tw.WriteHeader(); err != nil {
			return err
		}
		for _, g := range genes {
			if err := tw.Write([]string{g}); err != nil {
				return err
			}
		}
		return tw.Flush()
	}

	counts, err := store.Neighbors(gene)
	if err != nil {
		return err
	}
	tw := output.NewTabWriter(cmd.OutOrStdout(), []string{"gene", "molecules", "features"})
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, c := range counts {
		if err := tw.Write([]string{
			c.Gene,
			strconv.FormatInt(c.Molecules, 10),
			strconv.FormatInt(c.Features, 10),
		}); err != nil {
			return err
		}
	}
	return tw.Flush()
}
