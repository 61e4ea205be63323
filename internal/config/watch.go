package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchFile calls onChange after path is written, created or renamed into
// place, coalescing bursts within debounce. The parent directory is watched
// because editors often replace the file on save. Watcher errors such as
// event overflows go to onError and trigger a reload since changes may have
// been lost. It blocks until ctx is done or the watcher shuts down.
func WatchFile(ctx context.Context, path string, debounce time.Duration, onChange func(), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	return watchEvents(ctx, watcher.Events, watcher.Errors, filepath.Base(path), debounce, onChange, onError)
}

// watchEvents is the debounce loop of WatchFile.
func watchEvents(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, name string, debounce time.Duration, onChange func(), onError func(error)) error {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()
	schedule := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.NewTimer(debounce)
	}

	for {
		var debounceC <-chan time.Time
		if debounceTimer != nil {
			debounceC = debounceTimer.C
		}

		select {
		case <-ctx.Done():
			return nil

		case <-debounceC:
			debounceTimer = nil
			onChange()

		case event, ok := <-events:
			if !ok {
				return errors.New("file watcher events channel closed")
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			schedule()

		case err, ok := <-errs:
			if !ok {
				return errors.New("file watcher error channel closed")
			}
			if onError != nil {
				onError(err)
			}
			schedule()
		}
	}
}
