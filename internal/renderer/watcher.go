package renderer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads templates when files in the template directory change.
// It blocks until ctx is cancelled.
func (r *Renderer) Watch(ctx context.Context, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return err
	}
	logger.Info("watching templates", slog.String("dir", r.dir))

	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".tmpl") {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Editors fire bursts of events per save; coalesce them.
			if debounce == nil {
				debounce = time.NewTimer(reloadDebounce)
			} else {
				debounce.Reset(reloadDebounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			if err := r.Reload(); err != nil {
				logger.Warn("template reload failed", slog.String("error", err.Error()))
				continue
			}
			logger.Info("templates reloaded")

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("template watcher error", slog.String("error", werr.Error()))
		}
	}
}
