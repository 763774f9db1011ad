// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package util provides small helpers shared by the switchAIChat packages.
package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned when a relative name escapes its base directory.
var ErrUnsafePath = errors.New("path escapes base directory")

// WritablePath returns the base directory for mutable data (logs, uploads)
// from SWITCHAI_WRITABLE_PATH, or "" to use the working directory.
func WritablePath() string {
	return strings.TrimSpace(os.Getenv("SWITCHAI_WRITABLE_PATH"))
}

// ExpandPath expands a leading "~" to the user's home directory and cleans the result.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Clean(path), nil
}

// SafeJoin joins name onto base and rejects results outside base.
func SafeJoin(base, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || filepath.IsAbs(name) {
		return "", ErrUnsafePath
	}
	cleanBase := filepath.Clean(base)
	joined := filepath.Join(cleanBase, name)
	rel, err := filepath.Rel(cleanBase, joined)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrUnsafePath
	}
	return joined, nil
}
