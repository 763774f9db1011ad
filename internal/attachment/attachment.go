// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package attachment reads and writes message attachments stored on the local
// filesystem or in an S3-compatible bucket.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/traylinx/switchAIChat/internal/provider"
	"github.com/traylinx/switchAIChat/internal/util"
)

var (
	// ErrInvalidRef is returned for empty or unsafe attachment references.
	ErrInvalidRef = errors.New("invalid attachment reference")
	// ErrNotFound is returned when the referenced attachment does not exist.
	ErrNotFound = errors.New("attachment not found")
)

// Store reads and writes attachments.
type Store interface {
	provider.AttachmentReader
	// Save stores data under a fresh key that keeps the extension of name and
	// returns the key.
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// Key reduces ref, a file name, path or URL, to its object key: the last path
// element. Upload URLs such as "/uploads/abc.png" resolve to "abc.png".
func Key(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrInvalidRef
	}
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		ref = u.Path
	}
	key := path.Base(strings.ReplaceAll(ref, "\\", "/"))
	if key == "." || key == "/" || key == ".." || strings.HasPrefix(key, ".") {
		return "", ErrInvalidRef
	}
	return key, nil
}

func newKey(name string) string {
	return uuid.NewString() + strings.ToLower(path.Ext(name))
}

// LocalStore keeps attachments in a directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory when missing.
func NewLocalStore(dir string) (*LocalStore, error) {
	expanded, err := util.ExpandPath(dir)
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(expanded, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create attachments directory: %w", err)
	}
	return &LocalStore{dir: expanded}, nil
}

// Dir returns the storage directory.
func (s *LocalStore) Dir() string { return s.dir }

// Read returns the bytes of ref.
func (s *LocalStore) Read(_ context.Context, ref string) ([]byte, error) {
	p, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	return data, nil
}

// Save writes data atomically and returns its key.
func (s *LocalStore) Save(_ context.Context, name string, data []byte, _ string) (string, error) {
	key := newKey(name)
	p, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err = util.SecureWrite(p, data, 0o644); err != nil {
		return "", err
	}
	return key, nil
}

func (s *LocalStore) resolve(ref string) (string, error) {
	key, err := Key(ref)
	if err != nil {
		return "", err
	}
	p, err := util.SafeJoin(s.dir, key)
	if err != nil {
		return "", ErrInvalidRef
	}
	return p, nil
}

var _ Store = (*LocalStore)(nil)
