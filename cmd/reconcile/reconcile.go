// Package reconcile handles the matching batch command.
package reconcile

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ledgermatch/cmd/root"
	"ledgermatch/internal/dateutils"
)

var (
	accountID string
	fromStr   string
	toStr     string
)

// Cmd represents the reconcile command.
var Cmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Match statement lines against book transactions",
	Long: `Run the matching strategies (exact, fuzzy, amount tolerance, date only)
over unmatched statement lines for an account. High-confidence matches commit
automatically; uncertain ones land in the review queue.`,
	RunE: reconcileFunc,
}

func init() {
	Cmd.Flags().StringVarP(&accountID, "account", "a", "", "account to reconcile")
	Cmd.Flags().StringVar(&fromStr, "from", "", "start date (inclusive)")
	Cmd.Flags().StringVar(&toStr, "to", "", "end date (inclusive)")
	_ = Cmd.MarkFlagRequired("account")
}

func reconcileFunc(cmd *cobra.Command, args []string) error {
	from, to, err := dateRange()
	if err != nil {
		return err
	}

	report, err := root.App.Engine.RunBatch(cmd.Context(), accountID, from, to)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// dateRange parses the window flags, defaulting to the last 90 days.
func dateRange() (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -90)
	to := now

	if fromStr != "" {
		parsed, _, err := dateutils.ParseDate(fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing --from: %w", err)
		}
		from = parsed
	}
	if toStr != "" {
		parsed, _, err := dateutils.ParseDate(toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing --to: %w", err)
		}
		to = parsed
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s",
			dateutils.ToISODate(to), dateutils.ToISODate(from))
	}
	return from, to, nil
}
