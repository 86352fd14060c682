package main

import (
	"fmt"
	"os"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// initLogger initializes the logger based on configuration
func initLogger(cfg config.LoggingConfig) *zap.Logger {
	var zapConfig zap.Config

	// Choose log format: json or console
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	// Invalid levels keep the default
	level := zap.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level %q, using info\n", cfg.Level)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	// stdout carries command output
	zapConfig.OutputPaths = []string{"stderr"}

	logger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v. Using default logger.\n", err)
		return zap.NewExample()
	}

	return logger
}
