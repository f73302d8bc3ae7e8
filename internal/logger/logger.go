// Package logger builds the zap logger shared by the colgroup command and
// its packages.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// levels maps the configured level names to zap levels.
var levels = map[string]zapcore.Level{
	"debug": zap.DebugLevel,
	"info":  zap.InfoLevel,
	"warn":  zap.WarnLevel,
	"error": zap.ErrorLevel,
}

// NewLogger builds a logger writing to stderr. logFormat is "text" or
// "json"; logLevel is one of debug, info, warn, error or none, where none
// returns a no-op logger.
func NewLogger(logFormat, logLevel string) (*zap.Logger, error) {
	if logLevel == "none" {
		return zap.NewNop(), nil
	}

	level, ok := levels[logLevel]
	if !ok {
		return nil, fmt.Errorf("unknown log level: %s", logLevel)
	}

	cfg, err := config(logFormat, level)
	if err != nil {
		return nil, err
	}
	return cfg.Build()
}

func config(logFormat string, level zapcore.Level) (zap.Config, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.CallerKey = ""
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch logFormat {
	case "text":
		cfg.Encoding = "console"
		cfg.DisableCaller = true
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "json", "":
	default:
		return zap.Config{}, fmt.Errorf("unknown log format: %s", logFormat)
	}
	return cfg, nil
}
