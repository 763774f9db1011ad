// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the switchAIChat gateway.
// The server routes chat turns to Gemini, OpenAI-compatible or Anthropic
// backends and keeps a model catalog synchronized with them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/switchAIChat/internal/buildinfo"
	"github.com/traylinx/switchAIChat/internal/config"
	"github.com/traylinx/switchAIChat/internal/logging"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = "config.yaml"
)

const shutdownTimeout = 15 * time.Second

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	var (
		configPath string
		showVer    bool
	)
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.BoolVar(&showVer, "version", false, "Print version and exit")
	flag.CommandLine.Usage = func() {
		out := flag.CommandLine.Output()
		_, _ = fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVer {
		fmt.Println(buildinfo.String())
		return
	}

	if err := run(configPath); err != nil {
		log.WithError(err).Error("server stopped with an error")
		os.Exit(1)
	}
}

func run(configPath string) error {
	if abs, err := filepath.Abs(configPath); err == nil {
		configPath = abs
	}
	config.LoadDotEnv(filepath.Join(filepath.Dir(configPath), ".env"), ".env")

	cfg, err := config.LoadConfigOptional(configPath, true)
	if err != nil {
		return err
	}
	logging.SetDebug(cfg.Debug)
	if err = logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogsMaxTotalSizeMB); err != nil {
		return fmt.Errorf("failed to configure log output: %w", err)
	}
	log.Infof("switchAIChat %s", buildinfo.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, configPath, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err = app.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- app.server.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err = <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = app.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Warn("http server shutdown incomplete")
	}
	return nil
}
