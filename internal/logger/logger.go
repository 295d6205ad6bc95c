package logger

import (
	"strings"
	"sync"
)

// Log levels understood by the pipeline and its config file.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger configured with the provided level.
// Only the first call's level counts.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = New(level)
	})
	return globalLogger
}

// New builds a standalone logger, independent of the singleton.
func New(level string) *Logger {
	return newZapLogger(normalizeLevel(level))
}

func normalizeLevel(level string) string {
	l := strings.ToLower(strings.TrimSpace(level))
	if l == "warning" {
		return WarnLevel
	}
	return l
}
