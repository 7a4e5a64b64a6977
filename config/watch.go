package config

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/amp-labs/dungen/logger"
	"github.com/fsnotify/fsnotify"
)

// DebounceWindow is how long a file must stay quiet before a change is reported.
const DebounceWindow = 100 * time.Millisecond

// Watcher reports changes to YAML files. Bursts of writes to the same file
// collapse into one event once the file has been quiet for DebounceWindow.
type Watcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool

	Events chan string
	Errors chan error

	closeCh chan struct{}
	once    sync.Once
}

// NewWatcher watches the given YAML files. Their parent directories are
// watched so editors that save by renaming are still seen.
func NewWatcher(files ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		watcher: fw,
		files:   make(map[string]bool, len(files)),
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
	}

	dirs := make(map[string]bool)

	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			_ = fw.Close()

			return nil, fmt.Errorf("resolving %s: %w", file, err)
		}

		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	for dir := range dirs {
		err = fw.Add(dir)
		if err != nil {
			_ = fw.Close()

			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	go w.run()

	return w, nil
}

// Close stops the watcher. Events and Errors are closed once the watch loop exits.
func (w *Watcher) Close() error {
	var err error

	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})

	return err
}

func (w *Watcher) run() {
	defer close(w.Events)
	defer close(w.Errors)

	pending := make(map[string]bool)

	timer := time.NewTimer(DebounceWindow)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !w.relevant(event) {
				continue
			}

			pending[event.Name] = true

			timer.Reset(DebounceWindow)
		case <-timer.C:
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}

			clear(pending)
			slices.Sort(names)

			for _, name := range names {
				select {
				case w.Events <- name:
				case <-w.closeCh:
					return
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}

	if !isYAML(event.Name) {
		return false
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}

	return len(w.files) == 0 || w.files[abs]
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))

	return ext == ".yaml" || ext == ".yml"
}

// Watch reloads the configuration at path whenever it changes and hands the
// result to onChange. A config that fails to load is passed as an error and
// the previous one stays in effect. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config, error)) error {
	w, err := NewWatcher(path)
	if err != nil {
		return err
	}

	defer w.Close() //nolint:errcheck

	log := logger.Get(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case name, ok := <-w.Events:
			if !ok {
				return nil
			}

			log.Debug("config changed", "path", name)

			onChange(Load(name))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			log.Warn("config watcher error", "error", err)
		}
	}
}
