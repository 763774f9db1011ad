// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/traylinx/switchAIChat/internal/logging"
	"github.com/traylinx/switchAIChat/internal/orchestrator"
	"github.com/traylinx/switchAIChat/internal/stream"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

func streamInput(c *gin.Context) orchestrator.Input {
	useSearch := c.Query("use_web_search") == "true"
	return orchestrator.Input{
		ConversationID: c.Param("id"),
		Content:        c.Query("q"),
		UseWebSearch:   useSearch,
		ModelID:        c.Query("model_id"),
	}
}

// streamSSE relays the stream as server-sent events named after the event kind.
func (s *Server) streamSSE(c *gin.Context) {
	st, err := s.deps.Streams.Open(c.Request.Context(), streamInput(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer st.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Status(http.StatusOK)
	c.Writer.Flush()

	for ev := range st.Events() {
		payload, errMarshal := json.Marshal(ev)
		if errMarshal != nil {
			logging.FromContext(c.Request.Context()).WithError(errMarshal).Error("failed to encode stream event")
			return
		}
		c.SSEvent(string(ev.Kind), string(payload))
		c.Writer.Flush()
	}
}

// streamWebsocket relays the stream as JSON text frames. Any read error,
// including the client closing the socket, disconnects the stream.
func (s *Server) streamWebsocket(c *gin.Context) {
	in := streamInput(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.FromContext(c.Request.Context()).WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	logger := logging.FromContext(c.Request.Context()).WithField("conversation_id", in.ConversationID)

	st, err := s.deps.Streams.Open(c.Request.Context(), in)
	if err != nil {
		_ = writeFrame(conn, stream.Event{Kind: stream.EventError, Error: err.Error(), Reason: stream.ReasonError})
		closeSocket(conn, websocket.ClosePolicyViolation)
		return
	}
	defer st.Close()

	go func() {
		for {
			if _, _, errRead := conn.ReadMessage(); errRead != nil {
				st.Close()
				return
			}
		}
	}()

	for ev := range st.Events() {
		if errWrite := writeFrame(conn, ev); errWrite != nil {
			logger.WithError(errWrite).Debug("websocket write failed")
			st.Close()
			return
		}
	}
	closeSocket(conn, websocket.CloseNormalClosure)
}

func writeFrame(conn *websocket.Conn, ev stream.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func closeSocket(conn *websocket.Conn, code int) {
	msg := websocket.FormatCloseMessage(code, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
