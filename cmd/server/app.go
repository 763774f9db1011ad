// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/switchAIChat/internal/api"
	"github.com/traylinx/switchAIChat/internal/attachment"
	"github.com/traylinx/switchAIChat/internal/calendar"
	"github.com/traylinx/switchAIChat/internal/catalog"
	"github.com/traylinx/switchAIChat/internal/config"
	"github.com/traylinx/switchAIChat/internal/constant"
	"github.com/traylinx/switchAIChat/internal/conversation"
	"github.com/traylinx/switchAIChat/internal/discovery"
	"github.com/traylinx/switchAIChat/internal/logging"
	"github.com/traylinx/switchAIChat/internal/orchestrator"
	"github.com/traylinx/switchAIChat/internal/provider"
	"github.com/traylinx/switchAIChat/internal/provider/claude"
	"github.com/traylinx/switchAIChat/internal/provider/gemini"
	"github.com/traylinx/switchAIChat/internal/provider/openai"
	"github.com/traylinx/switchAIChat/internal/registry"
	"github.com/traylinx/switchAIChat/internal/router"
	"github.com/traylinx/switchAIChat/internal/search"
	"github.com/traylinx/switchAIChat/internal/store"
	"github.com/traylinx/switchAIChat/internal/stream"
	"github.com/traylinx/switchAIChat/internal/tools"
)

// app holds the wired services of one server process.
type app struct {
	live      *config.Live
	router    *router.Router
	scheduler *discovery.Scheduler
	watcher   *config.Watcher
	server    *api.Server
	closers   []io.Closer
}

func newApp(ctx context.Context, configPath string, cfg *config.Config) (*app, error) {
	a := &app{live: config.NewLive(cfg)}

	models, err := a.openCatalog(ctx, cfg.Catalog)
	if err != nil {
		return nil, err
	}
	attachments, err := a.openAttachments(ctx, cfg.Attachments)
	if err != nil {
		a.Close()
		return nil, err
	}
	conversations := conversation.NewMemoryStore()
	executor := tools.NewExecutor(calendar.NewMemoryStore(), a.live)

	active := registry.New(models, func() string { return a.live.Get().PrimaryProvider })
	a.router = router.New(active,
		router.WithProvider(constant.Gemini, func() provider.Adapter {
			return gemini.New(a.live.Get().Providers.Gemini, attachments)
		}),
		router.WithProvider(constant.OpenAI, func() provider.Adapter {
			return openai.New(a.live.Get().Providers.OpenAI, attachments, openai.WithTools(executor))
		}),
		router.WithProvider(constant.Claude, func() provider.Adapter {
			return claude.New(a.live.Get().Providers.Claude, attachments)
		}),
	)

	searcher := search.NewClient(cfg.Search)
	orch := orchestrator.New(conversations, models, a.router, searcher, a.live)
	streams := stream.New(conversations, orch, stream.WithTimeout(func() time.Duration {
		return a.live.Get().Stream.Timeout()
	}))

	syncer := discovery.NewSynchronizer(models, discovery.SourceFunc(a.listers),
		discovery.WithGracePeriod(func() time.Duration { return a.live.Get().Catalog.GracePeriod() }),
	)
	a.scheduler = discovery.NewScheduler(syncer, cfg.Catalog.SyncSchedule, cfg.Catalog.SyncOnStart)

	a.server = api.NewServer(cfg.Host, cfg.Port, cfg.Debug, api.Deps{
		Messages: orch,
		Streams:  streams,
		Catalog:  models,
		Active:   active,
		Syncer:   syncer,
	})
	a.watcher = config.NewWatcher(configPath, a.live, a.onReload)
	return a, nil
}

func (a *app) openCatalog(ctx context.Context, cfg config.CatalogConfig) (catalog.Store, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn("catalog uses the in-memory store; entries are lost on restart")
		return catalog.NewMemoryStore(), nil
	}
	s, err := store.OpenCatalogStore(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog store: %w", err)
	}
	a.closers = append(a.closers, s)
	return s, nil
}

func (a *app) openAttachments(ctx context.Context, cfg config.AttachmentsConfig) (attachment.Store, error) {
	if cfg.Minio.Enabled() {
		s, err := attachment.NewMinioStore(ctx, cfg.Minio)
		if err == nil {
			return s, nil
		}
		log.WithError(err).Warn("minio attachment store unavailable, falling back to local uploads")
	}
	s, err := attachment.NewLocalStore(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open uploads directory: %w", err)
	}
	return s, nil
}

func (a *app) listers() []discovery.Lister {
	adapters := a.router.Adapters()
	out := make([]discovery.Lister, 0, len(adapters))
	for _, ad := range adapters {
		out = append(out, ad)
	}
	return out
}

func (a *app) onReload(cfg *config.Config) {
	logging.SetDebug(cfg.Debug)
	a.router.Reset()
}

// Start runs the background services. The HTTP server is started by the caller.
func (a *app) Start(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	if err := a.watcher.Start(); err != nil {
		log.WithError(err).Warn("config watcher disabled")
	}
	return nil
}

// Close stops background services and releases stores.
func (a *app) Close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.WithError(err).Warn("failed to close store")
		}
	}
}
