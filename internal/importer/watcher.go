package importer

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/agenda/internal/storage"
)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the import directory and applies file
// changes until ctx is cancelled.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass (a full Sync) so that
// moved files end up under their new source name.
func (im *Importer) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, im.root); err != nil {
		return err
	}

	im.logger.Info("import watcher: started", slog.String("root", im.root))

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

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			im.logger.Info("import watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := im.Sync(ctx); err != nil {
				im.logger.Warn("import watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						im.logger.Warn("import watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					// Files may have landed before the watch was added.
					scheduleReconcile()
					continue
				}
			}

			if !im.wants(absPath) {
				continue
			}
			rel, relErr := filepath.Rel(im.root, absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := im.store.Read(rel)
				if readErr != nil {
					im.logger.Warn("import watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				if impErr := im.ImportFile(ctx, rel, data); impErr != nil {
					im.logger.Warn("import watcher: import failed", slog.String("path", rel), slog.String("error", impErr.Error()))
					continue
				}
				im.logger.Debug("import watcher: imported", slog.String("path", rel))

			case ev.Op&fsnotify.Remove != 0:
				if delErr := im.target.RemoveImported(ctx, rel); delErr != nil {
					im.logger.Warn("import watcher: remove failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				im.logger.Debug("import watcher: removed", slog.String("path", rel))

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports Rename on the old path; the new path shows
				// up as a Create if it stays inside a watched directory.
				if delErr := im.target.RemoveImported(ctx, rel); delErr != nil {
					im.logger.Warn("import watcher: rename remove failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("import watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (im *Importer) wants(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && storage.HasExt(base, im.ext)
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
