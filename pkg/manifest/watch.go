package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher triggers a callback when manifest sources in a project root change.
type Watcher struct {
	delay  time.Duration
	logger zerolog.Logger
}

// NewWatcher creates a watcher that coalesces bursts of events within delay.
func NewWatcher(delay time.Duration, logger zerolog.Logger) *Watcher {
	if delay == 0 {
		delay = 500 * time.Millisecond
	}
	return &Watcher{
		delay:  delay,
		logger: logger.With().Str("component", "manifest-watcher").Logger(),
	}
}

// Watch blocks until ctx is done, calling onChange after manifest files in
// projectRoot are written, created or renamed. Calls to onChange never
// overlap; events arriving during a call are folded into the next one.
func (w *Watcher) Watch(ctx context.Context, projectRoot string, onChange func(ctx context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files by rename, so watch the directory.
	if err := watcher.Add(projectRoot); err != nil {
		return fmt.Errorf("failed to watch %s: %w", projectRoot, err)
	}

	watched := make(map[string]bool)
	for _, f := range Files(projectRoot) {
		watched[filepath.Clean(f)] = true
	}

	w.logger.Info().Str("project_root", projectRoot).Msg("Watching manifest files")

	var (
		mu      sync.Mutex
		timer   *time.Timer
		running sync.Mutex
		pending sync.WaitGroup
	)
	trigger := func() {
		defer pending.Done()
		running.Lock()
		defer running.Unlock()
		if ctx.Err() != nil {
			return
		}
		onChange(ctx)
	}
	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil && timer.Stop() {
			pending.Done()
		}
		pending.Add(1)
		timer = time.AfterFunc(w.delay, trigger)
	}
	// An onChange already in flight must finish before Watch returns.
	defer func() {
		mu.Lock()
		if timer != nil && timer.Stop() {
			pending.Done()
		}
		mu.Unlock()
		pending.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}

			w.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Manifest file changed")

			schedule()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}
