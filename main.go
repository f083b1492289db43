// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trench-labs/trenchsniper/config"
	"github.com/trench-labs/trenchsniper/node"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	fs := config.BuildFlagSet(args[0])
	v, err := config.BuildViper(fs, args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "couldn't parse flags: %s\n", err)
		return 1
	}
	cfg, err := config.GetConfig(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "couldn't build config: %s\n", err)
		return 1
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad log level %q: %s\n", cfg.LogLevel, err)
		return 1
	}
	logCfg := zap.NewProductionConfig()
	logCfg.Level = zap.NewAtomicLevelAt(level)
	log, err := logCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "couldn't build logger: %s\n", err)
		return 1
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.SelfHosted {
		hosted, err := config.FetchHosted(ctx, cfg.APIURL, cfg.APIKey)
		if err != nil {
			log.Error("hosted bootstrap failed", zap.Error(err))
			return 1
		}
		if err := cfg.ApplyHosted(log, hosted); err != nil {
			log.Error("hosted config is unusable", zap.Error(err))
			return 1
		}
	}

	registry := prometheus.NewRegistry()
	n, err := node.New(log, cfg, registry)
	if err != nil {
		log.Error("failed to initialize node", zap.Error(err))
		return 1
	}

	if err := n.Run(ctx, registry); err != nil {
		log.Error("node exited with error", zap.Error(err))
		return 1
	}
	return 0
}
