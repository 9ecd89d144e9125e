// SPDX-License-Identifier: MIT

// Package logging builds the zap loggers used for diagnostics. Status lines
// are not log records; they are written by the CLI report sink.
package logging

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level enumerates supported logging granularities.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format enumerates supported logger output encodings.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

var levelMapping = map[Level]zapcore.Level{
	LevelDebug: zapcore.DebugLevel,
	LevelInfo:  zapcore.InfoLevel,
	LevelWarn:  zapcore.WarnLevel,
	LevelError: zapcore.ErrorLevel,
}

// LevelFor maps the CLI verbosity flags to a level. Quiet wins over verbose.
func LevelFor(verbose, quiet bool) Level {
	switch {
	case quiet:
		return LevelError
	case verbose:
		return LevelDebug
	default:
		return LevelInfo
	}
}

// New builds a logger that writes to out.
func New(out io.Writer, level Level, format Format) (*zap.Logger, error) {
	zapLevel, ok := levelMapping[level]
	if !ok {
		return nil, fmt.Errorf("unsupported log level: %s", level)
	}

	var encoder zapcore.Encoder
	switch format {
	case FormatConsole, "":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		cfg.CallerKey = zapcore.OmitKey
		encoder = zapcore.NewConsoleEncoder(cfg)
	case FormatJSON:
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), zap.NewAtomicLevelAt(zapLevel))
	return zap.New(core), nil
}

// Flush syncs logger, ignoring the errors terminals report for fsync.
func Flush(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	err := logger.Sync()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, syscall.ENOTSUP), errors.Is(err, syscall.EINVAL):
		return nil
	default:
		return err
	}
}
