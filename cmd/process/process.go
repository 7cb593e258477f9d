// Package process handles the pending-queue processing command.
package process

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgermatch/cmd/root"
)

var docID string

// Cmd represents the process command.
var Cmd = &cobra.Command{
	Use:   "process",
	Short: "Process pending documents",
	Long: `Run the extraction and normalization pipeline over pending documents.
Documents are claimed atomically, so concurrent invocations are safe. With
--id only that document is processed.`,
	RunE: processFunc,
}

func init() {
	Cmd.Flags().StringVar(&docID, "id", "", "process a single document by id")
}

func processFunc(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app := root.App

	if docID != "" {
		if err := app.Pipeline.ProcessOne(ctx, docID); err != nil {
			return err
		}
		doc, err := app.Store.GetDocument(ctx, docID)
		if err != nil {
			return err
		}
		fmt.Printf("document %s: %s\n", doc.ID, doc.Status)
		return nil
	}

	report, err := app.Pipeline.ProcessPending(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("processed %d: %d completed, %d needs review, %d failed (%d duplicates)\n",
		report.Processed, report.Completed, report.NeedsReview, report.Failed, report.Duplicates)
	return nil
}
