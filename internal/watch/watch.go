// Package watch runs the unattended mode: cron-scheduled inbox scans that
// feed the ingestion pipeline, periodic reconciliation sweeps per account,
// and an optional metrics endpoint.
package watch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"ledgermatch/internal/logging"
	"ledgermatch/internal/matcher"
	"ledgermatch/internal/metrics"
	"ledgermatch/internal/models"
	"ledgermatch/internal/pipeline"
	"ledgermatch/internal/storage"
)

// typeByExtension maps inbox file extensions to a declared document type.
// Unlisted extensions are ingested untyped and classified from content.
var typeByExtension = map[string]models.DocumentType{
	".csv":  models.DocTypeBankStatement,
	".xml":  models.DocTypeBankStatement,
	".xlsx": models.DocTypeSalesReport,
}

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// Config carries the watch-mode schedules and paths.
type Config struct {
	InboxDir          string
	ScanSchedule      string
	ReconcileSchedule string
	MetricsAddr       string
	// ReconcileLookbackDays bounds each reconciliation sweep.
	ReconcileLookbackDays int
}

// Watcher owns the cron scheduler and the metrics server.
type Watcher struct {
	pipe    *pipeline.Pipeline
	engine  *matcher.Engine
	store   storage.Store
	cfg     Config
	logger  logging.Logger
	cron    *cron.Cron
	httpSrv *http.Server
}

func New(pipe *pipeline.Pipeline, engine *matcher.Engine, store storage.Store, cfg Config, logger logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if cfg.InboxDir == "" {
		return nil, errors.New("watch: inbox directory is required")
	}
	if cfg.ReconcileLookbackDays < 1 {
		cfg.ReconcileLookbackDays = 35
	}
	for _, sub := range []string{"", processedDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(cfg.InboxDir, sub), models.PermissionDirectory); err != nil {
			return nil, fmt.Errorf("preparing inbox %s: %w", cfg.InboxDir, err)
		}
	}
	return &Watcher{
		pipe:   pipe,
		engine: engine,
		store:  store,
		cfg:    cfg,
		logger: logger.WithField("component", "watch.Watcher"),
	}, nil
}

// Run schedules the scan and reconcile jobs and blocks until the context is
// cancelled. An initial scan runs immediately so a pre-filled inbox does not
// wait a full schedule interval.
func (w *Watcher) Run(ctx context.Context) error {
	w.cron = cron.New()

	if _, err := w.cron.AddFunc(w.cfg.ScanSchedule, func() { w.ScanOnce(ctx) }); err != nil {
		return fmt.Errorf("scheduling inbox scan %q: %w", w.cfg.ScanSchedule, err)
	}
	if _, err := w.cron.AddFunc(w.cfg.ReconcileSchedule, func() { w.ReconcileOnce(ctx) }); err != nil {
		return fmt.Errorf("scheduling reconciliation %q: %w", w.cfg.ReconcileSchedule, err)
	}

	if w.cfg.MetricsAddr != "" {
		w.httpSrv = &http.Server{
			Addr:              w.cfg.MetricsAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			w.logger.Info("metrics endpoint listening",
				logging.Field{Key: "addr", Value: w.cfg.MetricsAddr})
			if err := w.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				w.logger.Error("metrics server stopped",
					logging.Field{Key: "error", Value: err.Error()})
			}
		}()
	}

	w.logger.Info("watch mode started",
		logging.Field{Key: "inbox", Value: w.cfg.InboxDir},
		logging.Field{Key: "scan_schedule", Value: w.cfg.ScanSchedule},
		logging.Field{Key: "reconcile_schedule", Value: w.cfg.ReconcileSchedule})

	w.ScanOnce(ctx)
	w.cron.Start()

	<-ctx.Done()
	return w.shutdown()
}

func (w *Watcher) shutdown() error {
	stopped := w.cron.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(30 * time.Second):
		w.logger.Warn("timed out waiting for running jobs")
	}
	if w.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("stopping metrics server: %w", err)
		}
	}
	w.logger.Info("watch mode stopped")
	return nil
}

// ScanOnce ingests every regular file sitting in the inbox, then drains the
// pending queue. Ingested files move to processed/, rejects to failed/.
func (w *Watcher) ScanOnce(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.InboxDir)
	if err != nil {
		w.logger.Error("reading inbox",
			logging.Field{Key: "dir", Value: w.cfg.InboxDir},
			logging.Field{Key: "error", Value: err.Error()})
		return
	}

	ingested := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if w.ingestFile(ctx, entry.Name()) {
			ingested++
		}
	}
	if ingested == 0 {
		return
	}

	report, err := w.pipe.ProcessPending(ctx)
	if err != nil {
		w.logger.Error("pending sweep failed",
			logging.Field{Key: "error", Value: err.Error()})
		return
	}
	w.logger.Info("inbox scan finished",
		logging.Field{Key: "ingested", Value: ingested},
		logging.Field{Key: "completed", Value: report.Completed},
		logging.Field{Key: "needs_review", Value: report.NeedsReview},
		logging.Field{Key: "failed", Value: report.Failed})
}

// ingestFile pushes one inbox file through intake and moves it aside.
// Reporting true means the file was handed to the pipeline.
func (w *Watcher) ingestFile(ctx context.Context, name string) bool {
	path := filepath.Join(w.cfg.InboxDir, name)
	content, err := os.ReadFile(path)
	if err != nil {
		w.logger.Error("reading inbox file",
			logging.Field{Key: "file", Value: name},
			logging.Field{Key: "error", Value: err.Error()})
		return false
	}

	declaredType := typeByExtension[strings.ToLower(filepath.Ext(name))]
	if _, err := w.pipe.Intake(ctx, content, declaredType, name, ""); err != nil {
		w.logger.Error("intake rejected inbox file",
			logging.Field{Key: "file", Value: name},
			logging.Field{Key: "error", Value: err.Error()})
		w.moveAside(name, failedDir)
		return false
	}
	w.moveAside(name, processedDir)
	return true
}

func (w *Watcher) moveAside(name, sub string) {
	src := filepath.Join(w.cfg.InboxDir, name)
	dst := filepath.Join(w.cfg.InboxDir, sub, name)
	if _, err := os.Stat(dst); err == nil {
		// A same-named file already moved aside this run keeps both copies.
		dst = filepath.Join(w.cfg.InboxDir, sub,
			fmt.Sprintf("%d-%s", time.Now().UnixNano(), name))
	}
	if err := os.Rename(src, dst); err != nil {
		w.logger.Error("moving inbox file aside",
			logging.Field{Key: "file", Value: name},
			logging.Field{Key: "error", Value: err.Error()})
	}
}

// ReconcileOnce runs a matching batch for every active account over the
// lookback window.
func (w *Watcher) ReconcileOnce(ctx context.Context) {
	accounts, err := w.store.ListAccounts(ctx)
	if err != nil {
		w.logger.Error("listing accounts for reconciliation",
			logging.Field{Key: "error", Value: err.Error()})
		return
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -w.cfg.ReconcileLookbackDays)
	for _, account := range accounts {
		if ctx.Err() != nil {
			return
		}
		if !account.Active {
			continue
		}
		report, err := w.engine.RunBatch(ctx, account.ID, from, now)
		if err != nil {
			w.logger.Error("reconciliation batch failed",
				logging.Field{Key: "account", Value: account.ID},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		w.logger.Info("reconciliation batch finished",
			logging.Field{Key: "account", Value: account.ID},
			logging.Field{Key: "auto_matched", Value: report.AutoMatched},
			logging.Field{Key: "sent_review", Value: report.SentReview},
			logging.Field{Key: "unmatched", Value: report.Unmatched})
	}
}
