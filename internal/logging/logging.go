// Package logging builds the process-wide zap logger.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a sugared logger at the given level ("debug", "info", "warn", "error").
// JSON output is meant for deployed workers; console output for local runs.
func New(level string, jsonOutput bool) (*zap.SugaredLogger, error) {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		lvl.SetLevel(zap.InfoLevel)
	}

	if jsonOutput {
		cfg := zap.NewProductionConfig()
		cfg.Level = lvl
		l, err := cfg.Build()
		if err != nil {
			return nil, err
		}
		return l.Sugar(), nil
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stderr), lvl)
	return zap.New(core).Sugar(), nil
}

// Component returns a child logger tagged with a component name.
func Component(parent *zap.SugaredLogger, name string) *zap.SugaredLogger {
	if parent == nil {
		parent = zap.NewNop().Sugar()
	}
	return parent.With("component", name)
}
