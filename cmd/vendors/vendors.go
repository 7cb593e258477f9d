// Package vendors handles the vendor alias registry commands.
package vendors

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ledgermatch/cmd/root"
)

var category string

// Cmd represents the vendors command group.
var Cmd = &cobra.Command{
	Use:   "vendors",
	Short: "Manage the vendor alias registry",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known vendors and their aliases",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := json.MarshalIndent(root.App.Vendors.All(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var learnCmd = &cobra.Command{
	Use:   "learn <raw-spelling> <canonical-name>",
	Short: "Teach the registry a vendor alias",
	Long: `Map a raw vendor spelling, as it appears on statements or documents,
to a canonical vendor. The registry is saved when the command exits.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vendor := root.App.Vendors.Learn(args[0], args[1], category)
		fmt.Printf("learned: %q -> %s\n", args[0], vendor.CanonicalName)
		return nil
	},
}

func init() {
	learnCmd.Flags().StringVarP(&category, "category", "c", "", "default category for the vendor")
	Cmd.AddCommand(listCmd, learnCmd)
}
