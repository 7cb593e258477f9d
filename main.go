package main

import (
	"fmt"
	"os"

	"ledgermatch/cmd/ingest"
	"ledgermatch/cmd/process"
	"ledgermatch/cmd/reconcile"
	reportcmd "ledgermatch/cmd/report"
	"ledgermatch/cmd/review"
	"ledgermatch/cmd/root"
	vendorscmd "ledgermatch/cmd/vendors"
	"ledgermatch/cmd/verify"
	watchcmd "ledgermatch/cmd/watch"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(ingest.Cmd)
	root.Cmd.AddCommand(process.Cmd)
	root.Cmd.AddCommand(reconcile.Cmd)
	root.Cmd.AddCommand(review.Cmd)
	root.Cmd.AddCommand(reportcmd.Cmd)
	root.Cmd.AddCommand(verify.Cmd)
	root.Cmd.AddCommand(watchcmd.Cmd)
	root.Cmd.AddCommand(vendorscmd.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
