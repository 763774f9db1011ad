// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const reloadDebounce = 150 * time.Millisecond

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing files
// are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err == nil {
			log.WithField("file", f).Debug("loaded environment file")
		}
	}
}

// Live holds the current configuration and swaps it atomically on reload.
type Live struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewLive wraps cfg.
func NewLive(cfg *Config) *Live {
	return &Live{cfg: cfg}
}

// Get returns the current configuration. Callers must treat it as read-only.
func (l *Live) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// Set replaces the current configuration.
func (l *Live) Set(cfg *Config) {
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
}

// SystemPrompt returns the global system prompt of the current configuration.
func (l *Live) SystemPrompt() string {
	return l.Get().SystemPrompt
}

// MainConversationID returns the main agent's conversation id.
func (l *Live) MainConversationID() string {
	return l.Get().Agent.MainConversationID
}

// Watcher reloads the configuration file when it changes on disk.
type Watcher struct {
	path     string
	live     *Live
	onReload func(*Config)

	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}
}

// NewWatcher creates a watcher for path that publishes reloads into live.
// onReload, when non-nil, is called after each successful reload.
func NewWatcher(path string, live *Live, onReload func(*Config)) *Watcher {
	return &Watcher{path: path, live: live, onReload: onReload}
}

// Start begins watching. The parent directory is watched so editors that
// replace the file with a rename are also detected.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err = fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	target := filepath.Clean(w.path)

	go func() {
		defer close(w.done)
		var pending <-chan time.Time
		for {
			select {
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					pending = time.After(reloadDebounce)
				}
			case <-pending:
				pending = nil
				w.reload()
			case errWatch, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.Errorf("config watcher error: %v", errWatch)
			case <-w.stop:
				return
			}
		}
	}()
	return nil
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		log.WithError(err).Warn("config reload failed, keeping previous configuration")
		return
	}
	w.live.Set(cfg)
	log.WithField("file", w.path).Info("configuration reloaded")
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	if w.watcher == nil {
		return
	}
	close(w.stop)
	_ = w.watcher.Close()
	<-w.done
	w.watcher = nil
}
