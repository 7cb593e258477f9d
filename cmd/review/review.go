// Package review handles the review queue commands.
package review

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ledgermatch/cmd/root"
	"ledgermatch/internal/models"
	"ledgermatch/internal/storage"
)

var (
	accountID     string
	status        string
	minConfidence float64
	reviewer      string
	voidReason    string
)

// Cmd represents the review command group.
var Cmd = &cobra.Command{
	Use:   "review",
	Short: "Inspect and resolve the reconciliation review queue",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List review items",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := root.App.Queue.List(cmd.Context(), storage.ReviewFilter{
			AccountID:     accountID,
			Status:        models.ReviewStatus(status),
			MinConfidence: minConfidence,
		})
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <item-id> <transaction-id>",
	Short: "Confirm a suggested match",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := root.App.Queue.Confirm(cmd.Context(), args[0], args[1], reviewerName())
		if err != nil {
			return err
		}
		fmt.Printf("confirmed: record %s (%s, confidence %.2f)\n",
			record.ID, record.MatchType, record.Confidence)
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <item-id>",
	Short: "Reject all suggestions for a review item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := root.App.Queue.Reject(cmd.Context(), args[0], reviewerName()); err != nil {
			return err
		}
		fmt.Println("rejected; the line stays open for manual linking")
		return nil
	},
}

var linkCmd = &cobra.Command{
	Use:   "link <line-id> <transaction-id>",
	Short: "Manually link a statement line to a book transaction",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := root.App.Queue.ManualLink(cmd.Context(), args[0], args[1], reviewerName())
		if err != nil {
			return err
		}
		fmt.Printf("linked: record %s\n", record.ID)
		return nil
	},
}

var voidCmd = &cobra.Command{
	Use:   "void <record-id>",
	Short: "Void a reconciliation record, returning both sides to the pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := root.App.Queue.Void(cmd.Context(), args[0], reviewerName(), voidReason); err != nil {
			return err
		}
		fmt.Println("voided")
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&accountID, "account", "a", "", "filter by account")
	listCmd.Flags().StringVarP(&status, "status", "s", "pending", "filter by status (pending, confirmed, rejected)")
	listCmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "only items whose best suggestion scores at least this")

	Cmd.PersistentFlags().StringVarP(&reviewer, "reviewer", "r", "", "reviewer recorded on the audit trail (defaults to $USER)")
	voidCmd.Flags().StringVar(&voidReason, "reason", "", "reason recorded on the voided record")
	_ = voidCmd.MarkFlagRequired("reason")

	Cmd.AddCommand(listCmd, confirmCmd, rejectCmd, linkCmd, voidCmd)
}

func reviewerName() string {
	if reviewer != "" {
		return reviewer
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "reviewer"
}
