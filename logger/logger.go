// Package logger builds the zap logger shared by the CLI and the server.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"klinefetch/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the optional log file.
const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 5
	fileMaxAgeDays = 7
)

// New builds a logger writing to the configured console stream and, when
// OutputFile is set, to a rotating JSON file as well.
func New(opts config.LogConfig) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder(opts), zapcore.Lock(consoleSink(opts.Output)), lvl),
	}
	if opts.OutputFile != "" {
		fc, err := fileCore(opts.OutputFile, lvl)
		if err != nil {
			return nil, err
		}
		cores = append(cores, fc)
	}

	return zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// consoleEncoder is human readable in dev or when asked for, JSON otherwise.
func consoleEncoder(opts config.LogConfig) zapcore.Encoder {
	if opts.Environment == "dev" || opts.Format == "console" {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		return zapcore.NewConsoleEncoder(cfg)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func fileCore(path string, lvl zapcore.Level) (zapcore.Core, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	var w io.Writer = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		MaxAge:     fileMaxAgeDays,
		Compress:   true,
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(w), lvl), nil
}

// consoleSink selects the console stream. The CLI passes "stderr" so the
// report on stdout stays clean.
func consoleSink(output string) *os.File {
	if output == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}
