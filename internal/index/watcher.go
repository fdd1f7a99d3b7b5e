package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/weave/internal/storage"
)

// Event kinds passed to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on root and processes document change
// events until ctx is cancelled. It calls cb (if non-nil) after each
// successful index mutation.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a debounced reconciliation pass that removes stale
// entries and indexes files that arrived under a new name.
func (ix *Indexer) Watch(ctx context.Context, root string, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	ix.logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	notify := func(kind, path string) {
		if cb != nil {
			cb(kind, path)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			ix.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			ix.reconcile(notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if storage.SkipDir(filepath.Base(absPath)) {
						continue
					}
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						ix.logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						ix.logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					ix.indexNewDir(root, absPath, notify)
					continue
				}
			}

			if !storage.IsDocument(filepath.Base(absPath)) {
				continue
			}
			rel, ok := relPath(root, absPath)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := ix.store.Read(rel)
				if readErr != nil {
					ix.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				if idxErr := ix.IndexFile(rel, data, time.Now()); idxErr != nil {
					ix.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				kind := EventUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = EventCreated
				}
				ix.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
				notify(kind, rel)

			case ev.Op&fsnotify.Remove != 0:
				if delErr := ix.db.DeleteDocument(rel); delErr != nil {
					ix.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				ix.logger.Debug("watcher: deleted", slog.String("path", rel))
				notify(EventDeleted, rel)

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old path only; the new name arrives as
				// a Create when it stays inside a watched directory.
				if delErr := ix.db.DeleteDocument(rel); delErr != nil {
					ix.logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					ix.logger.Debug("watcher: rename old deleted", slog.String("path", rel))
					notify(EventDeleted, rel)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			ix.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes index entries without a file on disk and indexes files
// whose checksum is unknown or stale.
func (ix *Indexer) reconcile(notify EventCallback) {
	checksums, err := ix.db.AllChecksums()
	if err != nil {
		ix.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := ix.store.List("")
	if err != nil {
		ix.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if delErr := ix.db.DeleteDocument(p); delErr == nil {
			ix.logger.Debug("reconcile: removed stale", slog.String("path", p))
			notify(EventDeleted, p)
		}
	}

	for _, m := range metas {
		if checksums[m.Path] == m.Checksum {
			continue
		}
		data, readErr := ix.store.Read(m.Path)
		if readErr != nil {
			continue
		}
		if idxErr := ix.IndexFile(m.Path, data, m.UpdatedAt); idxErr == nil {
			ix.logger.Debug("reconcile: indexed", slog.String("path", m.Path))
			notify(EventCreated, m.Path)
		}
	}
}

// indexNewDir indexes the documents already present in a new directory.
func (ix *Indexer) indexNewDir(root, dirPath string, notify EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsDocument(d.Name()) {
			return nil
		}
		rel, ok := relPath(root, path)
		if !ok {
			return nil
		}
		data, readErr := ix.store.Read(rel)
		if readErr != nil {
			return nil
		}
		if idxErr := ix.IndexFile(rel, data, time.Now()); idxErr == nil {
			ix.logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			notify(EventCreated, rel)
		}
		return nil
	})
}

func relPath(root, abs string) (string, bool) {
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// addDirsRecursive adds root and its subdirectories to the watcher,
// skipping excluded and hidden directories.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && storage.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
