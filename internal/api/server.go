// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api exposes the chat gateway over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/switchAIChat/internal/buildinfo"
	"github.com/traylinx/switchAIChat/internal/catalog"
	"github.com/traylinx/switchAIChat/internal/discovery"
	"github.com/traylinx/switchAIChat/internal/logging"
	"github.com/traylinx/switchAIChat/internal/orchestrator"
	"github.com/traylinx/switchAIChat/internal/registry"
	"github.com/traylinx/switchAIChat/internal/stream"
)

// MessageSender produces replies.
type MessageSender interface {
	SendMessage(ctx context.Context, in orchestrator.Input) (*orchestrator.Result, error)
}

// StreamOpener opens streaming replies.
type StreamOpener interface {
	Open(ctx context.Context, in orchestrator.Input) (*stream.Stream, error)
}

// ActiveModels is the active model registry.
type ActiveModels interface {
	State() registry.State
	Get(ctx context.Context) (registry.Selection, error)
	Set(ctx context.Context, modelID string, cfg *catalog.GenerationConfig) (registry.Selection, error)
	UpdateConfig(ctx context.Context, cfg catalog.GenerationConfig) (registry.Selection, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Messages MessageSender
	Streams  StreamOpener
	Catalog  catalog.Store
	Active   ActiveModels
	Syncer   discovery.Syncer
}

// Server wraps the gin engine and its listener.
type Server struct {
	engine *gin.Engine
	server *http.Server
	deps   Deps
}

// NewServer builds the engine and registers every route.
func NewServer(host string, port int, debug bool, deps Deps) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), logging.GinMiddleware())

	s := &Server{engine: engine, deps: deps}
	s.registerRoutes()
	s.server = &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": buildinfo.Version})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1")
	conv := v1.Group("/conversations/:id")
	conv.POST("/messages", s.sendMessage)
	conv.GET("/stream", s.streamSSE)
	conv.GET("/ws", s.streamWebsocket)

	models := v1.Group("/models")
	models.GET("", s.listModels)
	models.GET("/active", s.getActiveModel)
	models.PUT("/active", s.setActiveModel)
	models.PATCH("/active/config", s.updateActiveConfig)
	models.POST("/sync", s.syncModels)
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	log.WithField("addr", s.server.Addr).Info("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
