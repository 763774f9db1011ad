// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/traylinx/switchAIChat/internal/catalog"
	"github.com/traylinx/switchAIChat/internal/conversation"
	"github.com/traylinx/switchAIChat/internal/logging"
	"github.com/traylinx/switchAIChat/internal/orchestrator"
	"github.com/traylinx/switchAIChat/internal/provider"
	"github.com/traylinx/switchAIChat/internal/registry"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, conversation.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, registry.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrServiceUnavailable),
		errors.Is(err, registry.ErrNoActiveModel),
		errors.Is(err, provider.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, orchestrator.ErrEmptyMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).WithError(err).Error("request failed")
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}
