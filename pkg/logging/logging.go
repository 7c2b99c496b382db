// Package logging provides structured logging for the pipeline commands.
package logging

import (
	"os"
	"time"

	"go.uber.org/zap"
)

// Environment variables consulted when a flag is left empty.
const (
	EnvLevel  = "UVREG_LOG_LEVEL"
	EnvFormat = "UVREG_LOG_FORMAT"
)

// Logger wraps zap.Logger with pipeline-specific helpers.
type Logger struct {
	*zap.Logger
}

// Config holds logging configuration.
type Config struct {
	Level  string
	Format string // "json" or "console"
	// OutputPath is a file to log to instead of stderr.
	OutputPath string
	// Fields are attached to every entry.
	Fields map[string]string
}

// ConfigFromEnv fills empty level and format values from the environment.
// Console output is the default for interactive commands.
func ConfigFromEnv(level, format string) Config {
	if level == "" {
		level = os.Getenv(EnvLevel)
	}
	if format == "" {
		format = os.Getenv(EnvFormat)
	}
	if level == "" {
		level = "info"
	}
	if format == "" {
		format = "console"
	}
	return Config{Level: level, Format: format}
}

// New creates a logger writing to stderr unless OutputPath is set. An
// unparseable level falls back to info.
func New(config Config) (*Logger, error) {
	zapConfig := zap.NewProductionConfig()

	level, err := zap.ParseAtomicLevel(config.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	if config.Format == "console" {
		zapConfig.Encoding = "console"
	} else {
		zapConfig.Encoding = "json"
	}

	zapConfig.OutputPaths = []string{"stderr"}
	if config.OutputPath != "" {
		zapConfig.OutputPaths = []string{config.OutputPath}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	zapFields := make([]zap.Field, 0, len(config.Fields))
	for k, v := range config.Fields {
		zapFields = append(zapFields, zap.String(k, v))
	}
	return &Logger{Logger: logger.With(zapFields...)}, nil
}

// Stage logs the summary of one finished pipeline stage.
func (l *Logger) Stage(stage string, items int, elapsed time.Duration, fields ...zap.Field) {
	l.Info("stage finished", append([]zap.Field{
		zap.String("stage", stage),
		zap.Int("items", items),
		zap.Duration("elapsed", elapsed),
	}, fields...)...)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.Logger.Sync()
}
