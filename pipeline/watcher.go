package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// BundleWatcher calls Reload whenever the model bundle at Path is written or
// replaced. Bursts of events are collapsed into one reload.
type BundleWatcher struct {
	Path     string
	Reload   func(path string) error
	Debounce time.Duration

	logger *zap.Logger
}

func NewBundleWatcher(path string, reload func(string) error, logger *zap.Logger) *BundleWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BundleWatcher{Path: path, Reload: reload, Debounce: 500 * time.Millisecond, logger: logger}
}

// Run watches until ctx is cancelled. The parent directory is watched so
// atomic renames onto Path are seen.
func (w *BundleWatcher) Run(ctx context.Context) error {
	dir := filepath.Dir(w.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(w.Path)
	w.logger.Info("watching model bundle", zap.String("path", target))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				timer.Reset(w.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if _, err := os.Stat(target); err != nil {
				continue
			}
			if err := w.Reload(target); err != nil {
				w.logger.Warn("reload model bundle failed", zap.String("path", target), zap.Error(err))
				continue
			}
			w.logger.Info("model bundle reloaded", zap.String("path", target))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}
