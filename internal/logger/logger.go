package logger

import (
	"sync"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Options controls where logs go. A zero value logs to stdout only.
type Options struct {
	Level      string
	File       string // rotated by lumberjack when set
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}

var (
	// globalLogger holds the singleton logger instance.
	globalLogger *Logger
	once         sync.Once
)

// Get returns a singleton logger configured with the provided level.
// The first call initializes the logger; subsequent calls ignore the level
// and return the already initialized instance.
func Get(level string) *Logger {
	return Init(Options{Level: level})
}

// Init is Get with file output options. Only the first call takes effect.
func Init(opts Options) *Logger {
	once.Do(func() {
		globalLogger = New(opts)
	})
	return globalLogger
}
