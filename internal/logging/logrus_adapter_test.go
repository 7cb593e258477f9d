package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogrusAdapter(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		format      string
		expectLevel logrus.Level
	}{
		{
			name:        "debug level with text format",
			level:       "debug",
			format:      "text",
			expectLevel: logrus.DebugLevel,
		},
		{
			name:        "info level with json format",
			level:       "info",
			format:      "json",
			expectLevel: logrus.InfoLevel,
		},
		{
			name:        "warn level with text format",
			level:       "warn",
			format:      "text",
			expectLevel: logrus.WarnLevel,
		},
		{
			name:        "invalid level defaults to info",
			level:       "loud",
			format:      "text",
			expectLevel: logrus.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogrusAdapter(tt.level, tt.format)
			require.NotNil(t, logger)

			adapter, ok := logger.(*LogrusAdapter)
			require.True(t, ok, "logger should be a LogrusAdapter")
			assert.Equal(t, tt.expectLevel, adapter.logger.Level)

			if tt.format == "json" {
				_, ok := adapter.logger.Formatter.(*logrus.JSONFormatter)
				assert.True(t, ok, "formatter should be JSONFormatter")
			} else {
				_, ok := adapter.logger.Formatter.(*logrus.TextFormatter)
				assert.True(t, ok, "formatter should be TextFormatter")
			}
		})
	}
}

func TestNewLogrusAdapterFromLogger(t *testing.T) {
	t.Run("with existing logger", func(t *testing.T) {
		existing := logrus.New()
		existing.SetLevel(logrus.DebugLevel)

		logger := NewLogrusAdapterFromLogger(existing)
		require.NotNil(t, logger)

		adapter, ok := logger.(*LogrusAdapter)
		require.True(t, ok)
		assert.Equal(t, existing, adapter.logger)
	})

	t.Run("with nil logger creates new one", func(t *testing.T) {
		logger := NewLogrusAdapterFromLogger(nil)
		require.NotNil(t, logger)

		adapter, ok := logger.(*LogrusAdapter)
		require.True(t, ok)
		assert.NotNil(t, adapter.logger)
	})
}

func newBufferedAdapter(level logrus.Level) (Logger, *bytes.Buffer) {
	logrusLogger := logrus.New()
	var buf bytes.Buffer
	logrusLogger.SetOutput(&buf)
	logrusLogger.SetLevel(level)
	logrusLogger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return NewLogrusAdapterFromLogger(logrusLogger), &buf
}

func TestLogrusAdapter_LoggingMethods(t *testing.T) {
	tests := []struct {
		name    string
		logFunc func(Logger, string, ...Field)
		message string
		fields  []Field
	}{
		{
			name:    "Debug with fields",
			logFunc: func(l Logger, msg string, fields ...Field) { l.Debug(msg, fields...) },
			message: "claimed document",
			fields:  []Field{{Key: FieldDocumentID, Value: "doc-1"}},
		},
		{
			name:    "Info with fields",
			logFunc: func(l Logger, msg string, fields ...Field) { l.Info(msg, fields...) },
			message: "match committed",
			fields:  []Field{{Key: FieldStrategy, Value: "exact"}},
		},
		{
			name:    "Warn with fields",
			logFunc: func(l Logger, msg string, fields ...Field) { l.Warn(msg, fields...) },
			message: "routed to review",
			fields:  []Field{{Key: FieldReason, Value: "ambiguous_date"}},
		},
		{
			name:    "Error with fields",
			logFunc: func(l Logger, msg string, fields ...Field) { l.Error(msg, fields...) },
			message: "extraction failed",
			fields:  []Field{{Key: FieldDocType, Value: "invoice"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferedAdapter(logrus.DebugLevel)

			tt.logFunc(logger, tt.message, tt.fields...)

			output := buf.String()
			assert.Contains(t, output, tt.message)
			if len(tt.fields) > 0 {
				assert.Contains(t, output, tt.fields[0].Key)
			}
		})
	}
}

func TestLogrusAdapter_WithError(t *testing.T) {
	logger, buf := newBufferedAdapter(logrus.ErrorLevel)
	testErr := errors.New("disk unavailable")

	logger.WithError(testErr).Error("store write failed")

	output := buf.String()
	assert.Contains(t, output, "store write failed")
	assert.Contains(t, output, "disk unavailable")
}

func TestLogrusAdapter_WithField(t *testing.T) {
	logger, buf := newBufferedAdapter(logrus.InfoLevel)

	logger.WithField(FieldAccount, "checking-4821").Info("batch started")

	output := buf.String()
	assert.Contains(t, output, "batch started")
	assert.Contains(t, output, FieldAccount)
	assert.Contains(t, output, "checking-4821")
}

func TestLogrusAdapter_WithFields(t *testing.T) {
	logger, buf := newBufferedAdapter(logrus.InfoLevel)

	logger.WithFields(
		Field{Key: FieldVendor, Value: "SYSCO FOODS"},
		Field{Key: FieldAmount, Value: "1284.50"},
		Field{Key: FieldStrategy, Value: "fuzzy"},
	).Info("suggestion queued")

	output := buf.String()
	assert.Contains(t, output, "suggestion queued")
	assert.Contains(t, output, "SYSCO FOODS")
	assert.Contains(t, output, "1284.50")
	assert.Contains(t, output, "fuzzy")
}

func TestLogrusAdapter_ChainedCalls(t *testing.T) {
	logger, buf := newBufferedAdapter(logrus.InfoLevel)
	testErr := errors.New("busy")

	logger.
		WithField(FieldDocumentID, "doc-9").
		WithField(FieldAttempt, 2).
		WithError(testErr).
		Error("retry scheduled")

	output := buf.String()
	assert.Contains(t, output, "retry scheduled")
	assert.Contains(t, output, FieldDocumentID)
	assert.Contains(t, output, "doc-9")
	assert.Contains(t, output, FieldAttempt)
	assert.Contains(t, output, "busy")
}

func TestConvertFields(t *testing.T) {
	fields := []Field{
		{Key: "key1", Value: "value1"},
		{Key: "key2", Value: 42},
		{Key: "key3", Value: true},
	}

	logrusFields := convertFields(fields)

	assert.Len(t, logrusFields, 3)
	assert.Equal(t, "value1", logrusFields["key1"])
	assert.Equal(t, 42, logrusFields["key2"])
	assert.Equal(t, true, logrusFields["key3"])
}

func TestConvertFields_Empty(t *testing.T) {
	logrusFields := convertFields(nil)
	assert.Len(t, logrusFields, 0)
}

func TestDefaultLogger(t *testing.T) {
	original := GetLogger()
	defer SetLogger(original)

	mock := &MockLogger{}
	SetLogger(mock)
	assert.Equal(t, Logger(mock), GetLogger())

	SetLogger(nil)
	assert.Equal(t, Logger(mock), GetLogger(), "nil must not replace the default")
}

func TestLogrusAdapter_ImplementsInterface(t *testing.T) {
	var _ Logger = (*LogrusAdapter)(nil)
	var _ Logger = (*MockLogger)(nil)
}
