// Package report handles the monthly summary command.
package report

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ledgermatch/cmd/root"
	"ledgermatch/internal/report"
	"ledgermatch/internal/storage"
)

var rebuild bool

// Cmd represents the report command.
var Cmd = &cobra.Command{
	Use:   "report <year> <month>",
	Short: "Show or rebuild a monthly reconciliation summary",
	Long: `Print the reconciliation summary for one calendar month: cash flow,
match coverage, discrepancies and top vendors. With --rebuild the summary is
recomputed from stored transactions first.`,
	Args: cobra.ExactArgs(2),
	RunE: reportFunc,
}

func init() {
	Cmd.Flags().BoolVar(&rebuild, "rebuild", false, "recompute the summary before printing")
}

func reportFunc(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("parsing year %q: %w", args[0], err)
	}
	monthNum, err := strconv.Atoi(args[1])
	if err != nil || monthNum < 1 || monthNum > 12 {
		return fmt.Errorf("month must be 1-12, got %q", args[1])
	}
	month := time.Month(monthNum)

	builder := root.App.Reports
	summary, err := builder.Get(cmd.Context(), year, month)
	if rebuild || errors.Is(err, storage.ErrNotFound) {
		summary, err = builder.Rebuild(cmd.Context(), year, month)
	}
	if err != nil {
		return err
	}

	out, err := report.RenderJSON(summary)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
