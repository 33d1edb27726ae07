// Package logging provides the leveled console/file logger used by every
// command. It is a thin printf-style wrapper over zap: one console core
// (stdout, errors on stderr) and an optional plain-text file core.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/backmassage/symguard/internal/config"
	"github.com/backmassage/symguard/internal/term"
)

const timeLayout = "2006-01-02 15:04:05"

// Logger provides leveled, optionally colored logging with optional file sink.
type Logger struct {
	z       *zap.Logger
	success *zap.Logger
	file    *os.File
}

// NewLogger configures terminal colors from cfg and optionally opens
// cfg.LogFile in append mode. Call Close() when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)

	level := zapcore.InfoLevel
	if cfg.Verbose {
		level = zapcore.DebugLevel
	}

	console := zapcore.NewConsoleEncoder(encoderConfig(term.Enabled()))
	below := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= level && l < zapcore.ErrorLevel })
	errs := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel })
	cores := []zapcore.Core{
		zapcore.NewCore(console, zapcore.Lock(os.Stdout), below),
		zapcore.NewCore(console, zapcore.Lock(os.Stderr), errs),
	}

	l := &Logger{}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
		plain := zapcore.NewConsoleEncoder(encoderConfig(false))
		cores = append(cores, zapcore.NewCore(plain, zapcore.AddSync(f), level))
	}

	l.z = zap.New(zapcore.NewTee(cores...))
	l.success = l.z.Named("success")
	return l, nil
}

// NewNop returns a Logger that discards everything. Used by tests.
func NewNop() *Logger {
	z := zap.NewNop()
	return &Logger{z: z, success: z}
}

func encoderConfig(color bool) zapcore.EncoderConfig {
	ec := zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeLevel:      bracketLevel(color),
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       successName(color),
		ConsoleSeparator: " ",
	}
	return ec
}

// bracketLevel renders "[INFO]", colored like the terminal palette.
func bracketLevel(color bool) zapcore.LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		label := "[" + l.CapitalString() + "]"
		if !color {
			enc.AppendString(label)
			return
		}
		c := term.Blue
		switch l {
		case zapcore.DebugLevel:
			c = term.Cyan
		case zapcore.WarnLevel:
			c = term.Yellow
		case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
			c = term.Red
		}
		enc.AppendString(c + label + term.NC)
	}
}

// successName renders the "success" logger name as "SUCCESS".
func successName(color bool) zapcore.NameEncoder {
	return func(name string, enc zapcore.PrimitiveArrayEncoder) {
		label := strings.ToUpper(name)
		if color {
			label = term.Green + label + term.NC
		}
		enc.AppendString(label)
	}
}

// Close flushes buffered entries and closes the log file if one was opened.
func (l *Logger) Close() error {
	_ = l.z.Sync()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Sugar exposes the underlying zap logger for libraries that take a
// key/value logger.
func (l *Logger) Sugar() *zap.SugaredLogger { return l.z.Sugar() }

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.z.Info(fmt.Sprintf(format, args...))
}

// Success logs at INFO level under the SUCCESS name.
func (l *Logger) Success(format string, args ...interface{}) {
	l.success.Info(fmt.Sprintf(format, args...))
}

// Warn logs at WARN level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.z.Warn(fmt.Sprintf(format, args...))
}

// Error logs at ERROR level, to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.z.Error(fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level; dropped unless the config was verbose.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.z.Debug(fmt.Sprintf(format, args...))
}
