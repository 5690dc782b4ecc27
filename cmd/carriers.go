package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var carriersCmd = &cobra.Command{
	Use:   "carriers",
	Short: "Show carrier learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		_, carriers, err := buildPipeline(ctx, st)
		if err != nil {
			return err
		}

		stats := carriers.Stats()

		fmt.Printf("Carriers learned:    %d\n", stats.CarriersLearned)
		fmt.Printf("Documents processed: %d\n", stats.TotalDocumentsProcessed)
		fmt.Printf("User corrections:    %d\n", stats.TotalCorrections)

		if len(stats.TopPerformers) == 0 {
			return nil
		}

		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CARRIER\tDOCUMENTS\tAVG CONFIDENCE\tFIELDS LEARNED")
		for _, p := range stats.TopPerformers {
			fmt.Fprintf(w, "%s\t%d\t%.2f\t%d\n",
				p.CarrierName, p.DocumentsProcessed, p.AverageConfidence, p.FieldsLearned)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(carriersCmd)
}
