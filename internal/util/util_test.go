// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSecureWrite_SuccessfulWrite(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "nested", "test.txt")

	if err := SecureWrite(testFile, []byte("test content"), 0); err != nil {
		t.Fatalf("SecureWrite() failed: %v", err)
	}

	content, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != "test content" {
		t.Errorf("Expected content %q, got %q", "test content", content)
	}

	entries, err := os.ReadDir(filepath.Dir(testFile))
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != "test.txt" {
			t.Errorf("Unexpected file in directory: %s", entry.Name())
		}
	}
}

func TestSafeJoin(t *testing.T) {
	base := t.TempDir()
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain file", "photo.png", false},
		{"nested file", "2026/10/photo.png", false},
		{"parent escape", "../etc/passwd", true},
		{"nested escape", "a/../../b", true},
		{"absolute", "/etc/passwd", true},
		{"empty", "  ", true},
		{"dot", ".", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeJoin(base, tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsafePath) {
					t.Fatalf("SafeJoin(%q) err = %v, want ErrUnsafePath", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SafeJoin(%q) unexpected error: %v", tt.input, err)
			}
			if !strings.HasPrefix(got, base) {
				t.Errorf("SafeJoin(%q) = %q, outside %q", tt.input, got, base)
			}
		})
	}
}

func TestHideAPIKey(t *testing.T) {
	tests := map[string]string{
		"sk-1234567890abcd": "sk-1...abcd",
		"abcdef":            "ab...ef",
		"abc":               "a...c",
		"ab":                "ab",
	}
	for in, want := range tests {
		if got := HideAPIKey(in); got != want {
			t.Errorf("HideAPIKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskURL(t *testing.T) {
	got := MaskURL("https://example.com/v1beta/models?key=AIzaSyA1234567890&alt=sse")
	if strings.Contains(got, "AIzaSyA1234567890") {
		t.Errorf("key not masked: %s", got)
	}
	if !strings.Contains(got, "alt=sse") {
		t.Errorf("non-sensitive param dropped: %s", got)
	}
	plain := "https://example.com/v1/models"
	if MaskURL(plain) != plain {
		t.Errorf("MaskURL changed a URL without query")
	}
}
