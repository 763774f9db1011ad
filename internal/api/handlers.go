// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/traylinx/switchAIChat/internal/catalog"
	"github.com/traylinx/switchAIChat/internal/conversation"
	"github.com/traylinx/switchAIChat/internal/orchestrator"
	"github.com/traylinx/switchAIChat/internal/provider"
	"github.com/traylinx/switchAIChat/internal/registry"
)

type sendMessageRequest struct {
	Content      string                    `json:"content"`
	UseWebSearch bool                      `json:"use_web_search"`
	Attachment   *provider.Attachment      `json:"attachment,omitempty"`
	ModelID      string                    `json:"model_id,omitempty"`
	Config       *catalog.GenerationConfig `json:"config,omitempty"`
}

type sendMessageResponse struct {
	Message *conversation.Message `json:"message"`
	Model   *catalog.Entry        `json:"model"`
	Title   string                `json:"title,omitempty"`
}

func (s *Server) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Attachment != nil && req.Attachment.Ref == "" {
		badRequest(c, errors.New("attachment ref is required"))
		return
	}
	res, err := s.deps.Messages.SendMessage(c.Request.Context(), orchestrator.Input{
		ConversationID: c.Param("id"),
		Content:        req.Content,
		Attachment:     req.Attachment,
		UseWebSearch:   req.UseWebSearch,
		ModelID:        req.ModelID,
		Config:         req.Config,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sendMessageResponse{Message: res.Message, Model: res.Model, Title: res.Title})
}

func (s *Server) listModels(c *gin.Context) {
	filter := catalog.Filter{Provider: c.Query("provider")}
	if v := c.Query("available"); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, errors.New("available must be a boolean"))
			return
		}
		filter.AvailableOnly = available
	}
	entries, err := s.deps.Catalog.List(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

type activeModelResponse struct {
	State  string                   `json:"state"`
	Model  *catalog.Entry           `json:"model"`
	Config catalog.GenerationConfig `json:"config"`
}

func (s *Server) writeSelection(c *gin.Context, sel registry.Selection) {
	c.JSON(http.StatusOK, activeModelResponse{
		State:  s.deps.Active.State().String(),
		Model:  sel.Entry,
		Config: sel.Config,
	})
}

func (s *Server) getActiveModel(c *gin.Context) {
	sel, err := s.deps.Active.Get(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.writeSelection(c, sel)
}

type setActiveModelRequest struct {
	ModelID string                    `json:"model_id" binding:"required"`
	Config  *catalog.GenerationConfig `json:"config,omitempty"`
}

func (s *Server) setActiveModel(c *gin.Context) {
	var req setActiveModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sel, err := s.deps.Active.Set(c.Request.Context(), req.ModelID, req.Config)
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.writeSelection(c, sel)
}

func (s *Server) updateActiveConfig(c *gin.Context) {
	var cfg catalog.GenerationConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, err)
		return
	}
	sel, err := s.deps.Active.UpdateConfig(c.Request.Context(), cfg)
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.writeSelection(c, sel)
}

func (s *Server) syncModels(c *gin.Context) {
	if s.deps.Syncer == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "catalog synchronization is not configured"})
		return
	}
	c.JSON(http.StatusOK, s.deps.Syncer.SyncAll(c.Request.Context()))
}
