package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch delivers a freshly loaded effective Config on out whenever the file
// at path changes, until ctx is cancelled. Editors replace config files via
// rename, so the parent directory is watched rather than the file itself.
// Unparseable intermediate states are skipped.
func Watch(ctx context.Context, path string, out chan<- Config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if _, err := os.Stat(path); err != nil {
				continue // mid-rename; wait for the replacement
			}
			cfg, err := Load()
			if err != nil {
				continue // half-written file; keep the previous config
			}
			select {
			case out <- cfg:
			case <-ctx.Done():
				return nil
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
		}
	}
}
