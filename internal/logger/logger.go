package logger

import (
	"strings"
	"sync"
)

// Log levels accepted by log.level.
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

// Get returns the process-wide logger. Only the first call's level is used.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = New(level, nil)
	})
	return globalLogger
}

// normalizeLevel maps config spellings ("WARNING", " Info ") to a known level.
func normalizeLevel(level string) string {
	switch l := strings.ToLower(strings.TrimSpace(level)); l {
	case "warning":
		return WarnLevel
	case "err":
		return ErrorLevel
	default:
		return l
	}
}
