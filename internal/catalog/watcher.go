package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc is called with the freshly parsed catalog after the watched
// document changes on disk.
type ReloadFunc func(*Catalog)

// Watch monitors a catalog document and reloads it on change until ctx is
// cancelled. Writes are debounced because editors commonly emit several
// events per save; a document that fails to parse is logged and skipped,
// keeping the previously loaded catalog in effect.
func Watch(ctx context.Context, path string, logger *slog.Logger, cb ReloadFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the parent directory: rename-over saves replace the inode, and a
	// watch on the file itself would silently die.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Base(path)

	logger.Info("catalog watcher: started", slog.String("path", path))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("catalog watcher: stopped")
			return nil

		case <-reloadCh:
			c, loadErr := LoadFile(path)
			if loadErr != nil {
				logger.Warn("catalog watcher: reload failed",
					slog.String("path", path),
					slog.String("error", loadErr.Error()))
				continue
			}
			logger.Info("catalog watcher: reloaded",
				slog.String("path", path),
				slog.String("reference", c.Reference()))
			if cb != nil {
				cb(c)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("catalog watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
