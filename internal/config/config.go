// Package config provides the Viper-based configuration layer: defaults,
// optional YAML config file, LEDGER-prefixed environment variables, then
// validation. Matching thresholds and windows live here rather than in code
// because acceptable risk tolerance varies by deployment.
package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"ledgermatch/internal/logging"
)

var once sync.Once

// LoadEnv loads environment variables from a .env file if one exists in the
// current or parent directory. Safe to call from every command; only the
// first call does work.
func LoadEnv() {
	once.Do(func() {
		envFile := ".env"
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			envFile = filepath.Join("..", ".env")
			if _, err := os.Stat(envFile); os.IsNotExist(err) {
				return
			}
		}
		_ = godotenv.Load(envFile)
	})
}

// ConfigureLogging builds a logrus backend from the Log section and installs
// it as the process-wide default logger.
func ConfigureLogging(cfg *Config) logging.Logger {
	backend := logrus.New()

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	backend.SetLevel(level)
	logrus.SetLevel(level)

	if cfg.Log.Format == "json" {
		backend.SetFormatter(&logrus.JSONFormatter{})
	} else {
		backend.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger := logging.NewLogrusAdapterFromLogger(backend)
	logging.SetLogger(logger)
	return logger
}
