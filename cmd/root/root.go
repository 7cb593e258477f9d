// Package root contains the root command and the application wiring shared
// by every subcommand.
package root

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"ledgermatch/internal/auditlog"
	"ledgermatch/internal/blob"
	"ledgermatch/internal/camtextractor"
	"ledgermatch/internal/config"
	"ledgermatch/internal/csvextractor"
	"ledgermatch/internal/extractor"
	"ledgermatch/internal/logging"
	"ledgermatch/internal/matcher"
	"ledgermatch/internal/models"
	"ledgermatch/internal/normalize"
	"ledgermatch/internal/pipeline"
	"ledgermatch/internal/report"
	"ledgermatch/internal/reviewqueue"
	"ledgermatch/internal/salesextractor"
	"ledgermatch/internal/storage/sqlite"
	"ledgermatch/internal/textextractor"
	"ledgermatch/internal/vendors"
	"ledgermatch/internal/visionextractor"
)

// Flags shared across subcommands.
var (
	ConfigPath string
	LogLevel   string
	DBPath     string
	DataDir    string
)

// App is the wired application, built once in PersistentPreRunE.
var App *Application

// Application holds every component a subcommand might need.
type Application struct {
	Cfg     *config.Config
	Log     logging.Logger
	Store   *sqlite.DB
	Blobs   *blob.FileStore
	Vendors *vendors.Registry
	Ledger  *auditlog.Ledger

	Pipeline *pipeline.Pipeline
	Engine   *matcher.Engine
	Queue    *reviewqueue.Queue
	Reports  *report.Builder
}

// Cmd is the root command.
var Cmd = &cobra.Command{
	Use:   "ledgermatch",
	Short: "Document extraction and bank reconciliation for small-business books",
	Long: `ledgermatch ingests financial documents (bank statements, invoices,
receipts, check images, sales reports), extracts and normalizes their
transactions, and reconciles book transactions against statement lines.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		App = app
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if App == nil {
			return
		}
		if err := App.Vendors.Save(); err != nil {
			App.Log.Warn("failed to save vendor registry",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if err := App.Store.Close(); err != nil {
			App.Log.Warn("failed to close database",
				logging.Field{Key: "error", Value: err.Error()})
		}
	},
}

// Init registers the root command's persistent flags.
func Init() {
	Cmd.PersistentFlags().StringVar(&ConfigPath, "config", "", "path to config file")
	Cmd.PersistentFlags().StringVar(&LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	Cmd.PersistentFlags().StringVar(&DBPath, "db", "", "path to the sqlite database")
	Cmd.PersistentFlags().StringVar(&DataDir, "data-dir", "", "data directory for blobs and state")
}

func buildApp() (*Application, error) {
	config.LoadEnv()

	cfg, err := config.LoadFrom(ConfigPath)
	if err != nil {
		return nil, err
	}
	if LogLevel != "" {
		cfg.Log.Level = LogLevel
	}
	if DataDir != "" {
		cfg.Data.Directory = DataDir
	}
	if DBPath != "" {
		cfg.Data.DatabasePath = DBPath
	}

	logger := config.ConfigureLogging(cfg)

	dbPath := cfg.Data.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(cfg.Data.Directory, "ledgermatch.db")
	}
	store, err := sqlite.Open(dbPath, logger)
	if err != nil {
		return nil, err
	}

	blobs, err := blob.NewFileStore(filepath.Join(cfg.Data.Directory, "blobs"), logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	vendorPath := cfg.Data.VendorsFile
	if !filepath.IsAbs(vendorPath) {
		vendorPath = filepath.Join(cfg.Data.Directory, vendorPath)
	}
	vendorReg, err := vendors.Load(vendorPath, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("loading vendor registry: %w", err)
	}

	registry, err := buildExtractorRegistry(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	ledger := auditlog.New(store, "cli", logger)
	normalizer := normalize.New(vendorReg, logger)

	pipe := pipeline.New(store, blobs, registry, normalizer, ledger, pipeline.Config{
		Workers:               cfg.Pipeline.Workers,
		AutoAcceptThreshold:   cfg.Pipeline.AutoAcceptThreshold,
		CompletenessThreshold: cfg.Pipeline.CompletenessThreshold,
		DedupeWindowDays:      cfg.Pipeline.DedupeWindowDays,
		MaxRetries:            cfg.Pipeline.MaxRetries,
		RetryBase:             time.Duration(cfg.Pipeline.RetryBaseMillis) * time.Millisecond,
		RetryCap:              time.Duration(cfg.Pipeline.RetryCapMillis) * time.Millisecond,
		DefaultAccount:        cfg.Pipeline.DefaultAccount,
	}, logger)

	engine := matcher.NewEngine(store, ledger, matcher.Config{
		FuzzyThreshold:       cfg.Matching.FuzzyThreshold,
		AutoConfirmThreshold: cfg.Matching.AutoConfirmThreshold,
		AmountTolerance:      cfg.Matching.AmountTolerance,
		ExactDateWindow:      cfg.Matching.ExactDateWindow,
		FuzzyDateWindow:      cfg.Matching.FuzzyDateWindow,
		DateOnlyWindow:       cfg.Matching.DateOnlyWindow,
		TieMargin:            cfg.Matching.TieMargin,
	}, logger)

	return &Application{
		Cfg:      cfg,
		Log:      logger,
		Store:    store,
		Blobs:    blobs,
		Vendors:  vendorReg,
		Ledger:   ledger,
		Pipeline: pipe,
		Engine:   engine,
		Queue:    reviewqueue.New(store, ledger, logger),
		Reports:  report.NewBuilder(store, ledger, logger),
	}, nil
}

// buildExtractorRegistry wires one extractor per document type. Statements
// arrive as either CSV or camt.053 XML under the same declared type, so a
// sniffing dispatcher sits in front of those two.
func buildExtractorRegistry(cfg *config.Config, logger logging.Logger) (*extractor.Registry, error) {
	registry := extractor.NewRegistry(logger)

	statements := &statementDispatch{
		csv:  csvextractor.New(logger),
		camt: camtextractor.New(logger),
	}
	registry.Register(models.DocTypeBankStatement, statements)
	registry.Register(models.DocTypeCreditCardStatement, statements)
	registry.Register(models.DocTypeSalesReport, salesextractor.New(logger))

	text := textextractor.New(logger)
	registry.Register(models.DocTypeInvoice, text)
	registry.Register(models.DocTypeReceipt, text)
	registry.SetFallback(text)

	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" {
			return nil, fmt.Errorf("ai.enabled is set but GEMINI_API_KEY is missing")
		}
		engine, err := visionextractor.NewGeminiEngine(context.Background(), cfg.AI.APIKey, cfg.AI.Model, logger)
		if err != nil {
			return nil, fmt.Errorf("initializing vision engine: %w", err)
		}
		vision := visionextractor.New(engine, logger)
		registry.Register(models.DocTypeCheckImage, vision)
		registry.Register(models.DocTypeHandwrittenNote, vision)
	} else {
		// Without a vision engine, image-born types still parse any text
		// layer the scanner produced.
		registry.Register(models.DocTypeCheckImage, text)
		registry.Register(models.DocTypeHandwrittenNote, text)
	}

	return registry, nil
}

// statementDispatch routes statement content to the camt extractor when it
// looks like XML, the CSV extractor otherwise.
type statementDispatch struct {
	csv  *csvextractor.Extractor
	camt *camtextractor.Extractor
}

func (d *statementDispatch) Name() string { return "statement-dispatch" }

func (d *statementDispatch) Extract(ctx context.Context, content []byte) (*extractor.Result, error) {
	if bytes.HasPrefix(bytes.TrimLeft(content, " \t\r\n"), []byte("<")) {
		return d.camt.Extract(ctx, content)
	}
	return d.csv.Extract(ctx, content)
}
