// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestLogFormatter_Format(t *testing.T) {
	f := &LogFormatter{}
	entry := &log.Entry{
		Logger:  log.StandardLogger(),
		Time:    time.Date(2026, 10, 14, 20, 14, 4, 0, time.UTC),
		Level:   log.WarnLevel,
		Message: "listModels failed\n",
		Data: log.Fields{
			RequestIDField: "a1b2c3d4",
			"provider":     "gemini",
			"attempt":      2,
		},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	got := string(out)
	want := "[2026-10-14 20:14:04] [a1b2c3d4] [warn ] listModels failed | attempt=2, provider=gemini\n"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestLogFormatter_CallerAndNoFields(t *testing.T) {
	f := &LogFormatter{}
	entry := &log.Entry{
		Logger:  log.StandardLogger(),
		Time:    time.Now(),
		Level:   log.InfoLevel,
		Message: "ready",
		Data:    log.Fields{},
		Caller:  &runtime.Frame{File: "/src/internal/api/server.go", Line: 42},
	}
	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, "[--------] [info ] [server.go:42] ready\n") {
		t.Errorf("unexpected output %q", got)
	}
	if strings.Contains(got, "|") {
		t.Errorf("expected no field separator, got %q", got)
	}
}

func TestEnforceLogDirLimit(t *testing.T) {
	dir := t.TempDir()
	protected := filepath.Join(dir, "main.log")
	write := func(name string, size int, age time.Duration) {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, make([]byte, size), 0o644); err != nil {
			t.Fatal(err)
		}
		ts := time.Now().Add(-age)
		if err := os.Chtimes(p, ts, ts); err != nil {
			t.Fatal(err)
		}
	}
	write("main.log", 400, 72*time.Hour)
	write("main-old.log", 400, 48*time.Hour)
	write("main-new.log", 400, time.Hour)

	removed, err := enforceLogDirLimit(dir, 900, protected)
	if err != nil {
		t.Fatalf("enforceLogDirLimit: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(protected); err != nil {
		t.Errorf("protected file removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "main-old.log")); !os.IsNotExist(err) {
		t.Errorf("expected oldest unprotected file to be removed")
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	if got := RequestID(ctx); got != "abc" {
		t.Errorf("RequestID = %q", got)
	}
	if got := FromContext(ctx).Data[RequestIDField]; got != "abc" {
		t.Errorf("FromContext field = %v", got)
	}
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}
