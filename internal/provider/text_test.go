// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/traylinx/switchAIChat/internal/constant"
)

func TestSanitizeOutput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Assistant: Hello there", "Hello there"},
		{"[14/10/2026 10:22] Assistente: Olá!", "Olá!"},
		{"[10:22] Hello", "Hello"},
		{"bot: AI: nested", "nested"},
		{"Model answers are stable", "Model answers are stable"},
		{"  plain reply  ", "plain reply"},
		{"[link](http://x) text", "[link](http://x) text"},
	}
	for _, tt := range tests {
		if got := SanitizeOutput(tt.in); got != tt.want {
			t.Errorf("SanitizeOutput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Here are some options:\n1. Trip planning to Lisbon\n2. Lisbon weekend", "Trip planning to Lisbon"},
		{"Title: planning a trip", "Planning a trip"},
		{`"viagem a lisboa".`, "Viagem a lisboa"},
		{"Sure! Here is a title: Cooking tips", "Cooking tips"},
		{"**Budget Review**", "Budget Review"},
		{"Okinawa travel notes", "Okinawa travel notes"},
		{"   ", ""},
		{"\"\"", ""},
	}
	for _, tt := range tests {
		if got := CleanTitle(tt.in); got != tt.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanTitle_Truncates(t *testing.T) {
	got := CleanTitle(strings.Repeat("word ", 40))
	if len([]rune(got)) > maxTitleLength {
		t.Errorf("title length %d exceeds %d", len([]rune(got)), maxTitleLength)
	}
}

func TestTitleOrFallback(t *testing.T) {
	if got := TitleOrFallback(""); got != constant.FallbackTitle {
		t.Errorf("TitleOrFallback(\"\") = %q", got)
	}
	if got := TitleOrFallback("weekly sync"); got != "Weekly sync" {
		t.Errorf("TitleOrFallback = %q", got)
	}
}

func TestMimeFromExtension(t *testing.T) {
	tests := map[string]string{
		"photo.JPG":        "image/jpeg",
		"scan.png":         "image/png",
		"dir/report.pdf":   "application/pdf",
		"archive.tar.gz":   "application/octet-stream",
		"no-extension":     "application/octet-stream",
		"uploads/img.webp": "image/webp",
	}
	for in, want := range tests {
		if got := MimeFromExtension(in); got != want {
			t.Errorf("MimeFromExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

type mapReader map[string][]byte

func (m mapReader) Read(_ context.Context, ref string) ([]byte, error) {
	if b, ok := m[ref]; ok {
		return b, nil
	}
	return nil, errors.New("not found")
}

func TestLoadAttachment(t *testing.T) {
	r := mapReader{"a.png": []byte("png")}
	data, mt, err := LoadAttachment(context.Background(), r, &Attachment{Kind: AttachmentImage, Ref: "a.png"})
	if err != nil || string(data) != "png" || mt != "image/png" {
		t.Errorf("LoadAttachment = %q, %q, %v", data, mt, err)
	}
	_, mt, _ = LoadAttachment(context.Background(), r, &Attachment{Ref: "a.png", MimeType: "image/x-custom"})
	if mt != "image/x-custom" {
		t.Errorf("explicit mime ignored: %q", mt)
	}
	if _, _, err := LoadAttachment(context.Background(), r, &Attachment{Ref: "b.png"}); err == nil {
		t.Error("expected error for missing attachment")
	}
	if _, _, err := LoadAttachment(context.Background(), nil, &Attachment{Ref: "a.png"}); err == nil {
		t.Error("expected error without reader")
	}
}

func TestSystemPromptWithSearch(t *testing.T) {
	if got := SystemPromptWithSearch("sys", ""); got != "sys" {
		t.Errorf("got %q", got)
	}
	if got := SystemPromptWithSearch("", "results"); got != "results" {
		t.Errorf("got %q", got)
	}
	if got := SystemPromptWithSearch("sys", "results"); got != "sys\n\nresults" {
		t.Errorf("got %q", got)
	}
}
