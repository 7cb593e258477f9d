package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Data struct {
		// Directory is the root for the blob store and inbox layout.
		Directory string `mapstructure:"directory" yaml:"directory"`
		// DatabasePath is the sqlite file; empty means <directory>/ledgermatch.db.
		DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
		VendorsFile  string `mapstructure:"vendors_file" yaml:"vendors_file"`
	} `mapstructure:"data" yaml:"data"`

	Pipeline struct {
		Workers int `mapstructure:"workers" yaml:"workers"`
		// AutoAcceptThreshold gates processing->completed; documents scoring
		// below it go to needs_review.
		AutoAcceptThreshold   float64 `mapstructure:"auto_accept_threshold" yaml:"auto_accept_threshold"`
		CompletenessThreshold float64 `mapstructure:"completeness_threshold" yaml:"completeness_threshold"`
		DedupeWindowDays      int     `mapstructure:"dedupe_window_days" yaml:"dedupe_window_days"`
		MaxRetries            int     `mapstructure:"max_retries" yaml:"max_retries"`
		RetryBaseMillis       int     `mapstructure:"retry_base_millis" yaml:"retry_base_millis"`
		RetryCapMillis        int     `mapstructure:"retry_cap_millis" yaml:"retry_cap_millis"`
		// DefaultAccount receives transactions whose documents name no account.
		DefaultAccount string `mapstructure:"default_account" yaml:"default_account"`
	} `mapstructure:"pipeline" yaml:"pipeline"`

	Matching struct {
		FuzzyThreshold       float64 `mapstructure:"fuzzy_threshold" yaml:"fuzzy_threshold"`
		AutoConfirmThreshold float64 `mapstructure:"auto_confirm_threshold" yaml:"auto_confirm_threshold"`
		// AmountTolerance is a fraction of the statement amount (0.05 = 5%).
		AmountTolerance    float64 `mapstructure:"amount_tolerance" yaml:"amount_tolerance"`
		ExactDateWindow    int     `mapstructure:"exact_date_window_days" yaml:"exact_date_window_days"`
		FuzzyDateWindow    int     `mapstructure:"fuzzy_date_window_days" yaml:"fuzzy_date_window_days"`
		DateOnlyWindow     int     `mapstructure:"date_only_window_days" yaml:"date_only_window_days"`
		TieMargin          float64 `mapstructure:"tie_margin" yaml:"tie_margin"`
	} `mapstructure:"matching" yaml:"matching"`

	AI struct {
		Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
		Model          string `mapstructure:"model" yaml:"model"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		APIKey         string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
	} `mapstructure:"ai" yaml:"ai"`

	Watch struct {
		InboxDir          string `mapstructure:"inbox_dir" yaml:"inbox_dir"`
		ScanSchedule      string `mapstructure:"scan_schedule" yaml:"scan_schedule"`
		ReconcileSchedule string `mapstructure:"reconcile_schedule" yaml:"reconcile_schedule"`
		MetricsAddr       string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	} `mapstructure:"watch" yaml:"watch"`
}

// Load initializes Viper configuration with hierarchical loading:
// defaults, then an optional YAML config file, then LEDGER_* environment
// variables, then validation.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file path, bypassing the search
// locations. An empty path behaves like Load.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.ledgermatch")
		v.AddConfigPath(".ledgermatch")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LEDGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Continue with defaults and env vars; a broken file is worth a
			// warning, not a refusal to start.
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	// The API key always comes from the environment, unprefixed.
	if err := v.BindEnv("ai.api_key", "GEMINI_API_KEY"); err != nil {
		fmt.Printf("Warning: failed to bind GEMINI_API_KEY environment variable: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("data.directory", "data")
	v.SetDefault("data.database_path", "")
	v.SetDefault("data.vendors_file", "vendors.yaml")

	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.auto_accept_threshold", 0.7)
	v.SetDefault("pipeline.completeness_threshold", 0.7)
	v.SetDefault("pipeline.dedupe_window_days", 90)
	v.SetDefault("pipeline.max_retries", 3)
	v.SetDefault("pipeline.retry_base_millis", 200)
	v.SetDefault("pipeline.retry_cap_millis", 5000)
	v.SetDefault("pipeline.default_account", "primary")

	v.SetDefault("matching.fuzzy_threshold", 0.8)
	v.SetDefault("matching.auto_confirm_threshold", 0.9)
	v.SetDefault("matching.amount_tolerance", 0.05)
	v.SetDefault("matching.exact_date_window_days", 0)
	v.SetDefault("matching.fuzzy_date_window_days", 3)
	v.SetDefault("matching.date_only_window_days", 1)
	v.SetDefault("matching.tie_margin", 0.01)

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout_seconds", 30)

	v.SetDefault("watch.inbox_dir", "inbox")
	v.SetDefault("watch.scan_schedule", "@every 30s")
	v.SetDefault("watch.reconcile_schedule", "@every 5m")
	v.SetDefault("watch.metrics_addr", "")
}

func validate(cfg *Config) error {
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", cfg.Log.Format)
	}

	if cfg.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1, got: %d", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("pipeline.max_retries must not be negative, got: %d", cfg.Pipeline.MaxRetries)
	}

	for name, val := range map[string]float64{
		"pipeline.auto_accept_threshold":  cfg.Pipeline.AutoAcceptThreshold,
		"pipeline.completeness_threshold": cfg.Pipeline.CompletenessThreshold,
		"matching.fuzzy_threshold":        cfg.Matching.FuzzyThreshold,
		"matching.auto_confirm_threshold": cfg.Matching.AutoConfirmThreshold,
	} {
		if val < 0.0 || val > 1.0 {
			return fmt.Errorf("%s must be between 0.0 and 1.0, got: %f", name, val)
		}
	}

	if cfg.Matching.AmountTolerance < 0.0 || cfg.Matching.AmountTolerance > 0.5 {
		return fmt.Errorf("matching.amount_tolerance must be between 0.0 and 0.5, got: %f", cfg.Matching.AmountTolerance)
	}
	if cfg.Matching.AutoConfirmThreshold < cfg.Matching.FuzzyThreshold {
		return fmt.Errorf("matching.auto_confirm_threshold (%f) must not be below matching.fuzzy_threshold (%f)",
			cfg.Matching.AutoConfirmThreshold, cfg.Matching.FuzzyThreshold)
	}

	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY required when AI is enabled")
		}
		if cfg.AI.TimeoutSeconds < 1 || cfg.AI.TimeoutSeconds > 300 {
			return fmt.Errorf("ai.timeout_seconds must be between 1 and 300, got: %d", cfg.AI.TimeoutSeconds)
		}
	}

	return nil
}
