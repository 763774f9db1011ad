// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const logDirCleanInterval = 5 * time.Minute

var stopCleaner chan struct{}

// configureLogDirCleanerLocked (re)starts the background cleaner. Callers hold writerMu.
func configureLogDirCleanerLocked(dir string, maxTotalSizeMB int, protectedPath string) {
	stopLogDirCleanerLocked()
	if maxTotalSizeMB <= 0 {
		return
	}
	limit := int64(maxTotalSizeMB) * 1024 * 1024
	stop := make(chan struct{})
	stopCleaner = stop

	go func() {
		ticker := time.NewTicker(logDirCleanInterval)
		defer ticker.Stop()
		for {
			if removed, err := enforceLogDirLimit(dir, limit, protectedPath); err != nil {
				log.WithError(err).Debug("log directory cleanup failed")
			} else if removed > 0 {
				log.WithField("removed", removed).Debug("log directory trimmed")
			}
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

func stopLogDirCleanerLocked() {
	if stopCleaner != nil {
		close(stopCleaner)
		stopCleaner = nil
	}
}

// enforceLogDirLimit deletes the oldest log files in dir until the total size
// is within limit. protectedPath is never removed.
func enforceLogDirLimit(dir string, limit int64, protectedPath string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	type logFile struct {
		path    string
		size    int64
		modTime time.Time
	}
	var files []logFile
	var total int64
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), ".log") {
			continue
		}
		info, errInfo := e.Info()
		if errInfo != nil {
			continue
		}
		files = append(files, logFile{path: filepath.Join(dir, e.Name()), size: info.Size(), modTime: info.ModTime()})
		total += info.Size()
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	removed := 0
	for _, f := range files {
		if total <= limit {
			break
		}
		if protectedPath != "" && filepath.Clean(f.path) == filepath.Clean(protectedPath) {
			continue
		}
		if errRemove := os.Remove(f.path); errRemove != nil {
			continue
		}
		total -= f.size
		removed++
	}
	return removed, nil
}
