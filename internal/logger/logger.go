// Package logger wraps zap construction for the server binaries.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger holds the process-wide zap logger. Log is a no-op logger until
// Init succeeds.
type Logger struct {
	Log      *zap.Logger
	file     string
	noStdout bool
}

// Option configures a Logger.
type Option func(*Logger)

// WithFile additionally writes JSON logs to path, rotated by lumberjack.
func WithFile(path string) Option {
	return func(l *Logger) { l.file = path }
}

// WithoutStdout keeps stdout free, for binaries that speak a protocol on it.
func WithoutStdout() Option {
	return func(l *Logger) { l.noStdout = true }
}

// New returns a Logger with a no-op zap logger.
func New(opts ...Option) *Logger {
	l := &Logger{Log: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Init builds the production logger at level ("debug", "Info", "warn"...).
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	if !l.noStdout {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stdout), lvl))
	}
	if l.file != "" {
		rotator := &lumberjack.Logger{
			Filename:   l.file,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), lvl))
	}

	l.Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return nil
}
