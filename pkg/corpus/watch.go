package corpus

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ErrNotWatchable is returned by Watch for sources that are not local files.
var ErrNotWatchable = errors.New("corpus source is not a local file")

// Watch calls onChange each time the corpus file is written or recreated,
// until ctx is cancelled. The parent directory is watched so that a snapshot
// replaced by rename is still seen.
func Watch(ctx context.Context, src Source, onChange func()) error {
	fs, ok := src.(*FileSource)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotWatchable, src)
	}

	path, err := filepath.Abs(fs.Path)
	if err != nil {
		return fmt.Errorf("resolving corpus path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating corpus watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("corpus watcher error: %w", err)
		}
	}
}
