package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/books-crawler/dataset"
	"github.com/aluiziolira/books-crawler/pipeline"
)

func newRepairCmd(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repair <in> <out>",
		Short: "Rewrite damaged crawl output as a clean JSON array",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			books, load, err := dataset.LoadRecords(args[0])
			if err != nil {
				return err
			}

			writer, err := pipeline.NewJSONArrayWriter(args[1])
			if err != nil {
				return err
			}
			if err := writer.Write(books); err != nil {
				writer.Close()
				return err
			}
			if err := writer.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Recovered %d records (%d repaired), dropped %d of %d fragments -> %s\n",
				load.Recovered, load.Repaired, load.Dropped, load.Fragments, args[1])
			return nil
		},
	}
}
