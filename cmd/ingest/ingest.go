// Package ingest handles the document intake command.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ledgermatch/cmd/root"
	"ledgermatch/internal/models"
)

var (
	docType   string
	accountID string
	process   bool
)

// Cmd represents the ingest command.
var Cmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest documents into the processing pipeline",
	Long: `Ingest one or more document files. Each file is stored, fingerprinted
and queued as a pending document. With --process the pending queue is drained
immediately afterwards.`,
	Args: cobra.MinimumNArgs(1),
	RunE: ingestFunc,
}

func init() {
	Cmd.Flags().StringVarP(&docType, "type", "t", "", "declared document type (bank_statement, invoice, receipt, check_image, handwritten_note, sales_report, credit_card_statement)")
	Cmd.Flags().StringVarP(&accountID, "account", "a", "", "account the document belongs to")
	Cmd.Flags().BoolVarP(&process, "process", "p", false, "process the pending queue after intake")
}

func ingestFunc(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app := root.App

	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		doc, err := app.Pipeline.Intake(ctx, content, models.DocumentType(docType), filepath.Base(path), accountID)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		fmt.Printf("ingested %s as document %s\n", path, doc.ID)
	}

	if !process {
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
