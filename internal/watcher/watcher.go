// Package watcher observes the settings directory for credential and token
// file changes so cached authorization state never goes stale.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/khoward/photos-g-org/internal/event"
)

// Invalidator drops cached authorization state. *photos.Authenticator
// satisfies it.
type Invalidator interface {
	Invalidate()
}

// Service watches the settings directory and reacts to changes of the files
// named in watchFiles.
type Service struct {
	dir         string
	invalidator Invalidator
	eventBus    *event.Bus
	logger      *slog.Logger
	debounce    time.Duration
	watchFiles  map[string]bool
}

// NewService creates a watcher for the given settings directory.
func NewService(dir string, invalidator Invalidator, eventBus *event.Bus, logger *slog.Logger) *Service {
	return &Service{
		dir:         dir,
		invalidator: invalidator,
		eventBus:    eventBus,
		logger:      logger.With(slog.String("component", "settings-watcher")),
		debounce:    500 * time.Millisecond,
		watchFiles: map[string]bool{
			"config.json": true,
			"token.json":  true,
		},
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (s *Service) SetDebounce(d time.Duration) {
	s.debounce = d
}

// Start blocks until ctx is canceled. When fsnotify is unavailable the
// service logs a warning and returns; authorization state is then only
// refreshed when settings change through the API.
func (s *Service) Start(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("fsnotify unavailable, settings watcher disabled", "error", err)
		return
	}
	defer w.Close() //nolint:errcheck

	if err := w.Add(s.dir); err != nil {
		s.logger.Warn("watching settings directory failed", "error", err)
		return
	}
	s.logger.Info("settings watcher starting", slog.String("dir", s.dir))

	// Coalesce rapid rename/write pairs into one invalidation.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("settings watcher stopping")
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !s.watchFiles[filepath.Base(ev.Name)] {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			debounceTimer.Reset(s.debounce)
			pending = true

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("settings watcher error", "error", err)

		case <-debounceTimer.C:
			if !pending {
				continue
			}
			pending = false
			s.logger.Debug("settings files changed, invalidating cached authorization")
			s.invalidator.Invalidate()
			if s.eventBus != nil {
				s.eventBus.Publish(event.Event{Type: event.CredentialsChanged})
			}
		}
	}
}
