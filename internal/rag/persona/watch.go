package persona

import (
	"context"
	"path/filepath"
	"time"

	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"github.com/fsnotify/fsnotify"
)

const settleDelay = 200 * time.Millisecond

// Watch calls onChange with the path of any watched file that is written, created or renamed
// into place. Parent directories are watched so editors that replace files are seen too.
// Bursts of events for one file are collapsed. Blocks until ctx ends.
func Watch(ctx context.Context, paths []string, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	log := logger_i.NewLogger("file_watch")
	wanted := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		wanted[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for d := range dirs {
		if err := watcher.Add(d); err != nil {
			return err
		}
	}

	pending := make(map[string]*time.Timer)
	fire := make(chan string, len(paths)+1)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(ev.Name)
			if _, ok := wanted[abs]; !ok {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if t, ok := pending[abs]; ok {
				t.Reset(settleDelay)
				continue
			}
			pending[abs] = time.AfterFunc(settleDelay, func() {
				select {
				case fire <- abs:
				case <-ctx.Done():
				}
			})
		case path := <-fire:
			delete(pending, path)
			log.Info("Watched file changed", "path", path)
			onChange(path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("File watcher error", "error", err)
		}
	}
}
