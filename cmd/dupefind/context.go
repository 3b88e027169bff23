package main

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	dupegraph "github.com/mattkeenan/dupegraph/pkg"
)

// commandContext carries shared flag state and lazily built collaborators
// across subcommands
type commandContext struct {
	configPath string
	logLevel   string
	logFormat  string
	debugFlags string

	logger *zap.Logger
}

func (ctx *commandContext) setupLogger() error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(ctx.logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", ctx.logLevel, err)
	}

	var config zap.Config
	switch ctx.logFormat {
	case "console":
		config = zap.NewDevelopmentConfig()
	case "json":
		config = zap.NewProductionConfig()
	default:
		return fmt.Errorf("invalid log format %q (want console or json)", ctx.logFormat)
	}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	ctx.logger = logger
	return nil
}

func (ctx *commandContext) syncLogger() {
	if ctx.logger != nil {
		_ = ctx.logger.Sync()
	}
}

// scannerOptions resolves config-file defaults (when a config path was
// given) so subcommand flags can be layered on top
func (ctx *commandContext) scannerOptions() (dupegraph.Options, error) {
	opts := dupegraph.Options{
		BlockSize:   dupegraph.DefaultBlockSize,
		Threads:     dupegraph.DefaultThreads,
		SymlinkMode: dupegraph.SymlinkNone,
		Algorithm:   "sha512",
	}

	if ctx.configPath != "" {
		cfg, err := dupegraph.LoadConfig(ctx.configPath)
		if err != nil {
			return opts, err
		}
		opts, err = cfg.ScannerOptions()
		if err != nil {
			return opts, err
		}
	}

	opts.Logger = ctx.logger
	return opts, nil
}
