package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/claimstack/docpipe/internal/model"
	"github.com/claimstack/docpipe/internal/store"
)

var (
	runsStatus   string
	runsFilename string
	runsLimit    int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List processing run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:   model.RunStatus(runsStatus),
			Filename: runsFilename,
			Limit:    runsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list runs")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFILENAME\tSTATUS\tCONFIDENCE\tCOST\tCREATED")
		for _, r := range runs {
			confidence, costUSD := "-", "-"
			if r.Result != nil && r.Result.Extraction != nil {
				confidence = fmt.Sprintf("%.2f", r.Result.Extraction.OverallConfidence)
				costUSD = fmt.Sprintf("$%.4f", r.Result.CostUSD)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Filename, r.Status, confidence, costUSD,
				r.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "filter by run status")
	runsCmd.Flags().StringVar(&runsFilename, "filename", "", "filter by document filename")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 50, "maximum runs to list")

	rootCmd.AddCommand(runsCmd)
}
