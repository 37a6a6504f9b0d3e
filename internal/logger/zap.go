package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
	level zap.AtomicLevel
}

// defaultZapLevel defines the fallback log level when an unknown level string is provided.
const defaultZapLevel = zapcore.DebugLevel

// toZapLevel converts a textual level to zapcore.Level using known level constants.
func toZapLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return defaultZapLevel
	}
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

// newConsoleCore builds a zapcore.Core with a console encoder targeting stdout.
func newConsoleCore(level zap.AtomicLevel) zapcore.Core {
	cfg := encoderConfig()
	cfg.TimeKey = ""

	ws := zapcore.Lock(os.Stdout) // thread-safe writer
	return zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(ws), level)
}

// newFileCore writes JSON lines into a size-rotated file.
func newFileCore(opts Options, level zap.AtomicLevel) zapcore.Core {
	hook := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxAge:     opts.MaxAgeDays,
		MaxBackups: opts.MaxBackups,
		Compress:   opts.Compress,
		LocalTime:  true,
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(hook), level)
}

// New constructs a sugared zap logger. Most callers want Init or Get.
func New(opts Options) *Logger {
	level := zap.NewAtomicLevelAt(toZapLevel(opts.Level))

	core := newConsoleCore(level)
	if opts.File != "" {
		core = zapcore.NewTee(core, newFileCore(opts, level))
	}
	return &Logger{
		SugaredLogger: zap.New(core).Sugar(),
		level:         level,
	}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), level: zap.NewAtomicLevel()}
}

// SetLevel changes the level of every core at runtime.
func (l *Logger) SetLevel(levelStr string) {
	l.level.SetLevel(toZapLevel(levelStr))
}

// Level reports the current level.
func (l *Logger) Level() string {
	return l.level.Level().String()
}
