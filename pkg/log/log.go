// Package log provides the process-wide zap logger.
package log

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log *zap.SugaredLogger
var baseLogger *zap.Logger

// Init initializes the package-level logger. Every entry carries the run id
// so that log lines from different power cycles can be told apart.
func Init(debug bool) (string, error) {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return "", fmt.Errorf("can't initialize zap logger: %w", err)
	}

	runID := uuid.NewString()
	baseLogger = zapLogger.With(zap.String("run", runID))
	log = baseLogger.Sugar()
	return runID, nil
}

// Named returns a child logger for a component.
func Named(name string) *zap.SugaredLogger {
	return GetSugaredLogger().Named(name)
}

// GetSugaredLogger returns the sugared logger instance.
func GetSugaredLogger() *zap.SugaredLogger {
	if log == nil {
		// Fallback logger if not initialized
		baseLogger, _ = zap.NewProduction()
		log = baseLogger.Sugar()
	}
	return log
}

// Sync flushes any buffered log entries.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

func Infof(template string, args ...interface{}) {
	GetSugaredLogger().Infof(template, args...)
}

func Fatalf(template string, args ...interface{}) {
	GetSugaredLogger().Fatalf(template, args...)
}
