// Package logging builds the run logger: structured output on stdout plus a
// monthly plain-text log file. The file survives the run so the failure
// alert can attach it.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFilePath is the monthly log file for a run date, e.g.
// logs/asset-workorder-updates-LOG_3_2026.txt.
func LogFilePath(dir string, today time.Time) string {
	name := fmt.Sprintf("asset-workorder-updates-LOG_%d_%d.txt", int(today.Month()), today.Year())
	return filepath.Join(dir, name)
}

// New creates the logger.
// level: "debug", "info", "warn", "error" (default: "info")
// format: "json" or "console" (default: "console")
// The returned path points at the monthly log file; callers attach it to the
// failure alert. dir == "" disables the file sink.
func New(level, format, dir string, today time.Time) (*zap.Logger, string, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var stdoutEncoder zapcore.Encoder
	if format == "json" {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "timestamp"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		stdoutEncoder = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		stdoutEncoder = zapcore.NewConsoleEncoder(cfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(stdoutEncoder, zapcore.Lock(os.Stdout), zapLevel),
	}

	var logPath string
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("failed to create log dir: %w", err)
		}
		logPath = LogFilePath(dir, today)
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open log file: %w", err)
		}
		fileCfg := zap.NewDevelopmentEncoderConfig()
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(fileCfg),
			zapcore.Lock(f),
			zapLevel,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		logger = logger.With(zap.String("hostname", hostname))
	}
	return logger, logPath, nil
}
