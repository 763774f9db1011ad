// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package gemini

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/traylinx/switchAIChat/internal/constant"
	"github.com/traylinx/switchAIChat/internal/metrics"
	"github.com/traylinx/switchAIChat/internal/provider"
)

var dataTag = []byte("data:")

// StreamResponse starts a streamGenerateContent call with alt=sse. Non-empty
// text deltas are delivered in order; the channel closes when the provider
// finishes, fails, or ctx is cancelled.
func (a *Adapter) StreamResponse(ctx context.Context, req *provider.Request) (<-chan provider.Chunk, error) {
	if !a.configured() {
		return nil, provider.ErrNotConfigured
	}
	payload, err := a.buildPayload(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetQueryParam("key", a.apiKey).
		SetQueryParam("alt", "sse").
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "text/event-stream").
		SetBody(payload).
		Post(a.modelURL(req.Model, methodStream))
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(constant.Gemini, "stream", metrics.OutcomeError).Inc()
		return nil, err
	}
	body := resp.RawBody()
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		b, _ := io.ReadAll(body)
		if errClose := body.Close(); errClose != nil {
			log.Errorf("gemini stream: close response body error: %v", errClose)
		}
		metrics.ProviderRequests.WithLabelValues(constant.Gemini, "stream", metrics.OutcomeError).Inc()
		return nil, newStatusErr(resp.StatusCode(), b)
	}
	metrics.ProviderRequests.WithLabelValues(constant.Gemini, "stream", metrics.OutcomeSuccess).Inc()

	out := make(chan provider.Chunk)
	go func() {
		defer close(out)
		defer func() {
			if errClose := body.Close(); errClose != nil {
				log.Errorf("gemini stream: close response body error: %v", errClose)
			}
		}()

		send := func(c provider.Chunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(body)
		scanner.Buffer(nil, constant.MaxStreamingScannerBuffer)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if !bytes.HasPrefix(line, dataTag) {
				continue
			}
			data := bytes.TrimSpace(line[len(dataTag):])
			if len(data) == 0 || bytes.Equal(data, []byte("[DONE]")) {
				continue
			}
			if msg := gjson.GetBytes(data, "error.message"); msg.Exists() {
				send(provider.Chunk{Kind: provider.ChunkError, Err: fmt.Errorf("%s", msg.String())})
				return
			}
			text := candidateText(gjson.GetBytes(data, "candidates.0"))
			if text == "" {
				continue
			}
			if !send(provider.Chunk{Kind: provider.ChunkData, Text: text}) {
				return
			}
		}
		if errScan := scanner.Err(); errScan != nil && ctx.Err() == nil {
			send(provider.Chunk{Kind: provider.ChunkError, Err: errScan})
		}
	}()
	return out, nil
}
