package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

// watchDebounce coalesces the burst of fsnotify events a single save
// produces (write + chmod, sometimes a rename+create pair for editors
// using atomic-save) into one PipelineEvent per path.
const watchDebounce = 100 * time.Millisecond

// Watch recursively watches RootDir for filesystem changes and
// translates them into PipelineEvents on the returned channel, for
// callers driving Run() from live `cortex index --watch` sessions
// instead of a one-shot FullScan. If the fsnotify watcher cannot be
// created or the directories cannot be registered, an error is returned
// and no channel. The channel closes once ctx is cancelled or the
// watcher's event or error channel closes.
func (p *Pipeline) Watch(ctx context.Context) (<-chan domain.PipelineEvent, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := p.addWatchDirs(watcher, p.cfg.RootDir); err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan domain.PipelineEvent, p.cfg.EventQueueDepth)

	go p.runWatch(ctx, watcher, out)

	return out, nil
}

// addWatchDirs walks root and registers every non-excluded directory
// with watcher; fsnotify watches are not recursive on any platform, so
// every directory needs its own Add call.
func (p *Pipeline) addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // per-entry IO errors are skipped, not fatal to watch setup
		}
		if !d.IsDir() {
			return nil
		}
		if p.excluded(path) && path != root {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func (p *Pipeline) runWatch(ctx context.Context, watcher *fsnotify.Watcher, out chan<- domain.PipelineEvent) {
	defer watcher.Close()
	defer close(out)

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)

	emit := func(ev domain.PipelineEvent) {
		select {
		case out <- ev:
		case <-ctx.Done():
		}
	}

	debounced := func(path string, kind domain.PipelineEventKind) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[path]; ok {
			t.Stop()
		}
		timers[path] = time.AfterFunc(watchDebounce, func() {
			emit(domain.PipelineEvent{Kind: kind, Path: path})
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			info, statErr := os.Stat(ev.Name)
			isDir := statErr == nil && info.IsDir()

			switch {
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				debounced(ev.Name, domain.EventFileDeleted)
			case ev.Op&fsnotify.Create != 0 && isDir:
				_ = p.addWatchDirs(watcher, ev.Name)
			case ev.Op&(fsnotify.Write|fsnotify.Create) != 0 && !isDir:
				if p.excluded(ev.Name) {
					continue
				}
				lang := domain.LanguageFromExtension(extOf(ev.Name))
				if lang == domain.LangUnknown {
					continue
				}
				debounced(ev.Name, domain.EventFileChanged)
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
