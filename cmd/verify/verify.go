// Package verify handles the audit ledger verification command.
package verify

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgermatch/cmd/root"
)

// Cmd represents the verify command.
var Cmd = &cobra.Command{
	Use:   "verify",
	Short: "Replay the audit ledger and compare against live state",
	Long: `Fold every audit event into a derived reconciliation state and compare
it against the stored transactions and records. Any divergence means the
ledger and the store have drifted apart and needs investigation.`,
	RunE: verifyFunc,
}

func verifyFunc(cmd *cobra.Command, args []string) error {
	divergences, err := root.App.Ledger.Verify(cmd.Context())
	if err != nil {
		return err
	}
	if len(divergences) == 0 {
		fmt.Println("audit ledger verified: replay matches live state")
		return nil
	}
	for _, d := range divergences {
		fmt.Println(d.String())
	}
	return fmt.Errorf("%d divergence(s) between ledger and store", len(divergences))
}
