// Package watch handles the unattended watch-mode command.
package watch

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ledgermatch/cmd/root"
	"ledgermatch/internal/watch"
)

var (
	inboxDir          string
	scanSchedule      string
	reconcileSchedule string
	metricsAddr       string
)

// Cmd represents the watch command.
var Cmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch an inbox directory and reconcile on a schedule",
	Long: `Run unattended: scan the inbox on a cron schedule and ingest whatever
lands there, run reconciliation batches per account, and optionally serve
prometheus metrics. Stops cleanly on SIGINT or SIGTERM.`,
	RunE: watchFunc,
}

func init() {
	Cmd.Flags().StringVar(&inboxDir, "inbox", "", "inbox directory (defaults to config watch.inbox_dir)")
	Cmd.Flags().StringVar(&scanSchedule, "scan-schedule", "", "cron schedule for inbox scans")
	Cmd.Flags().StringVar(&reconcileSchedule, "reconcile-schedule", "", "cron schedule for reconciliation runs")
	Cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve prometheus metrics on")
}

func watchFunc(cmd *cobra.Command, args []string) error {
	app := root.App
	cfg := watch.Config{
		InboxDir:          app.Cfg.Watch.InboxDir,
		ScanSchedule:      app.Cfg.Watch.ScanSchedule,
		ReconcileSchedule: app.Cfg.Watch.ReconcileSchedule,
		MetricsAddr:       app.Cfg.Watch.MetricsAddr,
	}
	if inboxDir != "" {
		cfg.InboxDir = inboxDir
	}
	if scanSchedule != "" {
		cfg.ScanSchedule = scanSchedule
	}
	if reconcileSchedule != "" {
		cfg.ReconcileSchedule = reconcileSchedule
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}

	watcher, err := watch.New(app.Pipeline, app.Engine, app.Store, cfg, app.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return watcher.Run(ctx)
}
