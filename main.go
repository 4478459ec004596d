// ircbridge - bridges IRC conversations to a natural-language responder.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jeranaias/ircbridge/internal/bot"
	"github.com/jeranaias/ircbridge/internal/config"
	"github.com/jeranaias/ircbridge/internal/convo"
	"github.com/jeranaias/ircbridge/internal/openai"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "bot_config.toml", "path to the configuration file (TOML or JSON)")
		debug       = flag.Bool("debug", false, "enable debug logging")
		noWatch     = flag.Bool("no-watch", false, "disable configuration hot reload")
		showVersion = flag.Bool("version", false, "print version information and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("ircbridge %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	// Startup config load is the one failure that terminates the process;
	// everything after this point retries or degrades instead.
	cfg, err := config.LoadFromPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ircbridge: %v\n", err)
		os.Exit(1)
	}

	logger := buildLogger(*debug, cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck

	logger.Info("ircbridge starting",
		zap.String("version", Version),
		zap.String("server", cfg.Server),
		zap.Int("port", cfg.Port),
		zap.String("nickname", cfg.Nickname),
		zap.Strings("channels", cfg.Channels))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var updates <-chan *config.Config
	if !*noWatch {
		watcher, err := config.NewWatcher(*configPath, logger)
		if err != nil {
			logger.Warn("config watcher unavailable, hot reload disabled", zap.Error(err))
		} else if err := watcher.Start(ctx); err != nil {
			logger.Warn("config watcher failed to start, hot reload disabled", zap.Error(err))
			watcher.Close()
		} else {
			defer watcher.Close()
			updates = watcher.Updates()
		}
	}

	store := convo.NewStore()
	responder := openai.NewResponder(openai.NewClient(logger), store, openai.SettingsFromConfig(cfg))

	b := bot.New(logger, cfg, updates, responder)
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bridge terminated", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// buildLogger constructs the process logger. The -debug flag wins over the
// configured level.
func buildLogger(debug bool, level string) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	if debug {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else if parsed, err := zapcore.ParseLevel(level); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(parsed)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ircbridge: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
