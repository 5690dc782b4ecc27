package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/claimstack/docpipe/internal/model"
)

var (
	correctDocument string
	correctCarrier  string
	correctDocType  string
	correctField    string
	correctValue    string
	correctOriginal string
	correctContext  string
)

var correctCmd = &cobra.Command{
	Use:   "correct",
	Short: "Submit a field correction for carrier learning",
	Long:  "Records a user-verified field value and feeds it back into the carrier pattern store at elevated trust.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, _, err := buildPipeline(ctx, st)
		if err != nil {
			return err
		}

		fb := model.CorrectionFeedback{
			DocumentID:     correctDocument,
			CarrierID:      correctCarrier,
			DocumentType:   correctDocType,
			Field:          correctField,
			CorrectedValue: correctValue,
			OriginalValue:  correctOriginal,
			Context:        correctContext,
		}
		if err := p.SubmitCorrection(ctx, fb); err != nil {
			return err
		}

		fmt.Printf("Correction recorded for %s.%s\n", correctCarrier, correctField)
		return nil
	},
}

func init() {
	correctCmd.Flags().StringVar(&correctDocument, "document", "", "document ID the correction applies to")
	correctCmd.Flags().StringVar(&correctCarrier, "carrier", "", "carrier ID (required)")
	correctCmd.Flags().StringVar(&correctDocType, "doc-type", "", "document type")
	correctCmd.Flags().StringVar(&correctField, "field", "", "field name (required)")
	correctCmd.Flags().StringVar(&correctValue, "value", "", "corrected value (required)")
	correctCmd.Flags().StringVar(&correctOriginal, "original", "", "originally extracted value")
	correctCmd.Flags().StringVar(&correctContext, "context", "", "surrounding document text, if available")
	_ = correctCmd.MarkFlagRequired("carrier")
	_ = correctCmd.MarkFlagRequired("field")
	_ = correctCmd.MarkFlagRequired("value")

	rootCmd.AddCommand(correctCmd)
}
